package domain

import (
	"time"

	"github.com/nholding/trashinator/internal/audit"
	"github.com/nholding/trashinator/internal/utils"
)

// recordKeyVersion is bumped whenever the business key recipe changes.
const recordKeyVersion = "R1"

// WasteRecord is one day of disposed waste for a household. Volume is always
// stored in litres; see package volume for the boundary conversions.
type WasteRecord struct {
	ID               string          `json:"id" validate:"required"`
	BusinessKey      string          `json:"business_key" validate:"required"`
	HouseholdID      string          `json:"household_id" validate:"required"`
	TrackingPeriodID string          `json:"tracking_period_id"`
	Date             time.Time       `json:"date"`
	Litres           float64         `json:"litres"`
	AuditInfo        audit.AuditInfo `json:"audit"`
}

// NewWasteRecord builds a validated record that is not yet attached to a
// tracking period. The date is truncated to its calendar day.
func NewWasteRecord(householdID string, date time.Time, litres float64, createdBy string) (*WasteRecord, error) {
	day := utils.Day(date)
	r := &WasteRecord{
		ID:          utils.GenerateStableID(),
		BusinessKey: RecordBusinessKey(householdID, day),
		HouseholdID: householdID,
		Date:        day,
		Litres:      litres,
		AuditInfo:   *audit.NewAuditInfo(createdBy),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordBusinessKey is the deduplication key for one household and day.
func RecordBusinessKey(householdID string, day time.Time) string {
	return utils.GenerateBusinessKey(recordKeyVersion, map[string]string{
		"household": householdID,
		"date":      utils.FormatDay(day),
	})
}

func (r *WasteRecord) Validate() error {
	if err := validateStruct(r); err != nil {
		return err
	}
	if r.Date.IsZero() {
		return Invalid("Date", "date is required")
	}
	return validateLitres("Litres", r.Litres)
}
