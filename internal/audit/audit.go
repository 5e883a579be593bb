package audit

import (
	"time"
)

// SystemUser is recorded when no acting user is known, e.g. for the sweep.
const SystemUser = "system"

type AuditInfo struct {
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewAuditInfo returns an AuditInfo with the current timestamp and creator.
func NewAuditInfo(creator string) *AuditInfo {
	return &AuditInfo{
		CreatedBy: actor(creator),
		CreatedAt: time.Now().UTC(),
	}
}

// Touch records an update by updatedBy at the current time.
func (a *AuditInfo) Touch(updatedBy string) {
	a.UpdatedBy = actor(updatedBy)
	a.UpdatedAt = time.Now().UTC()
}

func actor(user string) string {
	if user == "" {
		return SystemUser
	}
	return user
}
