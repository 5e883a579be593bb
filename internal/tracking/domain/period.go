package domain

import (
	"fmt"
	"time"

	"github.com/nholding/trashinator/internal/audit"
	"github.com/nholding/trashinator/internal/utils"
)

// PeriodStatus is the lifecycle state of a TrackingPeriod.
//
//	PROGRESS ──► COMPLETE
//	    │
//	    └──────► VOID
//
// PROGRESS periods accept new records. COMPLETE and VOID are terminal.
type PeriodStatus string

const (
	StatusProgress PeriodStatus = "PROGRESS"
	StatusComplete PeriodStatus = "COMPLETE"
	StatusVoid     PeriodStatus = "VOID"
)

func (s PeriodStatus) Valid() bool {
	switch s {
	case StatusProgress, StatusComplete, StatusVoid:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s PeriodStatus) Terminal() bool {
	return s == StatusComplete || s == StatusVoid
}

// CanTransition returns ErrInvalidTransition unless from → to is
// PROGRESS → COMPLETE or PROGRESS → VOID.
func CanTransition(from, to PeriodStatus) error {
	if from == StatusProgress && to.Terminal() {
		return nil
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
}

// ClassifyClosing decides the terminal status of a stale PROGRESS period from
// its number of member records. A lone record is treated as noise.
func ClassifyClosing(members int) PeriodStatus {
	if members >= 2 {
		return StatusComplete
	}
	return StatusVoid
}

// TrackingPeriod is a contiguous run of waste records of one household in
// which no two consecutive records are more than the gap window apart.
//
// Began and Latest mirror the earliest and latest member record dates.
// HouseholdID never changes after creation.
type TrackingPeriod struct {
	ID                     string          `json:"id"`
	HouseholdID            string          `json:"household_id"`
	Began                  time.Time       `json:"began"`
	Latest                 time.Time       `json:"latest"`
	Status                 PeriodStatus    `json:"status"`
	LitresPerPersonPerWeek float64         `json:"litres_per_person_per_week"`
	AuditInfo              audit.AuditInfo `json:"audit"`
}

// PeriodMembership pairs a period with the number of records attached to it.
type PeriodMembership struct {
	Period  *TrackingPeriod
	Members int
}

// NewTrackingPeriod opens a PROGRESS period covering the single day.
func NewTrackingPeriod(householdID string, day time.Time) *TrackingPeriod {
	d := utils.Day(day)
	return &TrackingPeriod{
		ID:          utils.GenerateStableID(),
		HouseholdID: householdID,
		Began:       d,
		Latest:      d,
		Status:      StatusProgress,
		AuditInfo:   *audit.NewAuditInfo(audit.SystemUser),
	}
}

// Contains reports whether day lies within [Began, Latest].
func (p *TrackingPeriod) Contains(day time.Time) bool {
	return utils.DateInRange(utils.Day(day), p.Began, p.Latest)
}

// Distance is the number of days between day and the nearest bound of the
// period, 0 when the period contains day.
func (p *TrackingPeriod) Distance(day time.Time) int {
	d := utils.Day(day)
	switch {
	case d.Before(p.Began):
		return utils.DaysBetween(d, p.Began)
	case d.After(p.Latest):
		return utils.DaysBetween(p.Latest, d)
	default:
		return 0
	}
}

// Bounds returns the bounds the period has after including day.
func (p *TrackingPeriod) Bounds(day time.Time) (began, latest time.Time) {
	d := utils.Day(day)
	began, latest = p.Began, p.Latest
	if d.Before(began) {
		began = d
	}
	if d.After(latest) {
		latest = d
	}
	return began, latest
}

// SpanDays is the inclusive number of calendar days from Began to Latest.
func (p *TrackingPeriod) SpanDays() int {
	return utils.DaysBetween(p.Began, p.Latest) + 1
}

// Weeks is the number of started weeks the period spans, at least 1.
func (p *TrackingPeriod) Weeks() int {
	return (p.SpanDays() + 6) / 7
}

func (p *TrackingPeriod) Validate() error {
	if p.ID == "" {
		return Invalid("ID", "tracking period ID cannot be empty")
	}
	if p.HouseholdID == "" {
		return Invalid("HouseholdID", "tracking period must belong to a household")
	}
	if !p.Status.Valid() {
		return Invalid("Status", "unknown status %q", p.Status)
	}
	if p.Latest.Before(p.Began) {
		return Invalid("Latest", "latest %s is before began %s", utils.FormatDay(p.Latest), utils.FormatDay(p.Began))
	}
	return nil
}
