package models

// DashboardMetrics is the headline card set on the main dashboard.
type DashboardMetrics struct {
	TotalEmployees   int     `json:"totalEmployees"`
	ActiveEmployees  int     `json:"activeEmployees"`
	RegularCount     int     `json:"regularCount"`
	AtRiskCount      int     `json:"atRiskCount"`
	IrregularCount   int     `json:"irregularCount"`
	PoursToday       int     `json:"poursToday"`
	PoursThisWeek    int     `json:"poursThisWeek"`
	PendingAmount    float64 `json:"pendingAmount"`
	OpenNCCount      int     `json:"openNcCount"`
	LowStockCount    int     `json:"lowStockCount"`
}

// ExpiryAlert is one document approaching or past its expiry date.
type ExpiryAlert struct {
	EmployeeID    string `json:"employeeId"`
	EmployeeName  string `json:"employeeName"`
	Branch        string `json:"branch"`
	DocType       string `json:"docType"`
	DisplayName   string `json:"displayName"`
	ExpiryDate    string `json:"expiryDate"`
	DaysRemaining int    `json:"daysRemaining"` // negative means already expired
	Status        string `json:"status"`        // "expiring" | "expired"
}

// UpcomingPour is a pour in the dashboard's short-horizon list.
type UpcomingPour struct {
	ID         string  `json:"id"`
	ClientName string  `json:"clientName"`
	Site       string  `json:"site"`
	Date       string  `json:"date"`
	VolumeM3   float64 `json:"volumeM3"`
	MixDesign  string  `json:"mixDesign"`
}

// BranchCompliance is the per-branch compliance breakdown.
type BranchCompliance struct {
	Branch         string `json:"branch"`
	RegularCount   int    `json:"regularCount"`
	AtRiskCount    int    `json:"atRiskCount"`
	IrregularCount int    `json:"irregularCount"`
	TotalCount     int    `json:"totalCount"`
}
