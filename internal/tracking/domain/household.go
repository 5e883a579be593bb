package domain

import (
	"strings"

	"github.com/nholding/trashinator/internal/audit"
	"github.com/nholding/trashinator/internal/utils"
)

// Household is a group of people sharing bins. Population is the divisor of
// every per-person statistic.
type Household struct {
	ID         string          `json:"id" validate:"required"`
	UserID     string          `json:"user_id" validate:"required"`
	Name       string          `json:"name"`
	Population int             `json:"population" validate:"gte=1"`
	AuditInfo  audit.AuditInfo `json:"audit"`
}

// NewHousehold creates a validated household with a fresh ID.
func NewHousehold(userID, name string, population int, createdBy string) (*Household, error) {
	h := &Household{
		ID:         utils.GenerateStableID(),
		UserID:     strings.TrimSpace(userID),
		Name:       strings.TrimSpace(name),
		Population: population,
		AuditInfo:  *audit.NewAuditInfo(createdBy),
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Household) Validate() error {
	return validateStruct(h)
}
