package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAuditInfo(t *testing.T) {
	a := NewAuditInfo("alice")
	assert.Equal(t, "alice", a.CreatedBy)
	assert.False(t, a.CreatedAt.IsZero())
	assert.True(t, a.UpdatedAt.IsZero())

	assert.Equal(t, SystemUser, NewAuditInfo("").CreatedBy)
}

func TestTouch(t *testing.T) {
	a := NewAuditInfo("alice")
	a.Touch("")

	assert.Equal(t, SystemUser, a.UpdatedBy)
	assert.False(t, a.UpdatedAt.Before(a.CreatedAt))
}
