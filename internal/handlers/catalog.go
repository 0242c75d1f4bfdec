package handlers

import (
	"net/http"

	"concretrack-backend/internal/compliance"
	"concretrack-backend/internal/models"
)

// CatalogHandler serves the static document type catalog. The catalog is
// read-only: validity rules are compiled in, not editable at runtime.
type CatalogHandler struct{}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// ListDocumentTypes handles GET /api/catalog/document-types
func (h *CatalogHandler) ListDocumentTypes(w http.ResponseWriter, r *http.Request) {
	types := make([]models.DocumentTypeInfo, 0, len(compliance.RequiredDocs))
	for _, spec := range compliance.RequiredDocs {
		types = append(types, models.DocumentTypeInfo{
			DocType:       spec.DocType,
			DisplayName:   spec.DisplayName,
			HasExpiry:     spec.HasExpiry,
			ValidityYears: spec.ValidityYears,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"documentTypes": types,
	})
}
