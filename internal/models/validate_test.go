package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateEmployeeRequestValidate(t *testing.T) {
	valid := CreateEmployeeRequest{
		Name:          "Carlos Mendes",
		Branch:        "matriz",
		Role:          "lab technician",
		AdmissionDate: "2024-03-01",
	}
	assert.Empty(t, valid.Validate())

	missing := CreateEmployeeRequest{Name: "X"}
	errs := missing.Validate()
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "branch")
	assert.Contains(t, errs, "role")
	assert.Contains(t, errs, "admissionDate")
}

func TestCreateOvertimeRequestValidate(t *testing.T) {
	valid := CreateOvertimeRequest{EmployeeID: "e1", Date: "2026-08-01", Hours: 2.5}
	assert.Empty(t, valid.Validate())

	for _, hours := range []float64{0, -1, 25} {
		req := CreateOvertimeRequest{EmployeeID: "e1", Date: "2026-08-01", Hours: hours}
		assert.Contains(t, req.Validate(), "hours", "hours=%v should be rejected", hours)
	}
}

func TestCreatePourRequestValidate(t *testing.T) {
	valid := CreatePourRequest{
		ClientID:  "c1",
		Site:      "Tower B foundation",
		Date:      "2026-09-15",
		VolumeM3:  42.5,
		MixDesign: "fck 30 MPa",
	}
	assert.Empty(t, valid.Validate())

	zeroVolume := valid
	zeroVolume.VolumeM3 = 0
	assert.Contains(t, zeroVolume.Validate(), "volumeM3")
}

func TestCreateNonConformanceRequestValidate(t *testing.T) {
	emp := "e1"
	valid := CreateNonConformanceRequest{
		TypeID:      "t1",
		EmployeeID:  &emp,
		Date:        "2026-08-20",
		Description: "slump out of range on delivery",
	}
	assert.Empty(t, valid.Validate())

	// Either an employee or a client must be named.
	subjectless := valid
	subjectless.EmployeeID = nil
	assert.Contains(t, subjectless.Validate(), "subject")
}

func TestStockItemLowStock(t *testing.T) {
	item := StockItem{Quantity: 5, MinimumQty: 5}
	assert.True(t, item.LowStock())

	item.Quantity = 5.1
	assert.False(t, item.LowStock())
}
