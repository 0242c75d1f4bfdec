package models

import "strings"

// User represents an application user account.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Role         string `json:"role"` // viewer, manager, admin, super_admin
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// AuthResponse is returned on successful login/registration.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// RegisterRequest holds the fields for creating an account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate checks if the register request contains valid data.
func (r *RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if !strings.Contains(r.Email, "@") {
		errors["email"] = "A valid email is required"
	}
	if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if len(r.Name) < 2 {
		errors["name"] = "Name is required (min 2 characters)"
	}

	return errors
}

// LoginRequest holds login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks if the login request contains valid data.
func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

// UpdateUserRequest holds admin-editable user fields.
type UpdateUserRequest struct {
	Name     *string  `json:"name,omitempty"`
	Role     *string  `json:"role,omitempty"`
	Branches []string `json:"branches,omitempty"` // branch scope for manager/viewer
}
