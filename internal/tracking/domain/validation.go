package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nholding/trashinator/internal/utils"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// validateStruct runs the struct tags of v and reports the first failing field
// as a *ValidationError.
func validateStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return Invalid(fe.Field(), "failed %q constraint (value %v)", fe.ActualTag()+paramSuffix(fe.Param()), fe.Value())
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

func validateLitres(field string, litres float64) error {
	if math.IsNaN(litres) || math.IsInf(litres, 0) {
		return Invalid(field, "volume must be a finite number")
	}
	if litres < 0 {
		return Invalid(field, "volume cannot be below 0 (got %v)", litres)
	}
	return nil
}

// DetectOverlaps checks that the PROGRESS periods of each household have
// disjoint spans. Two PROGRESS periods closer than the gap window are fine:
// a record between them joins only the nearer one. Sharing a day is not, as
// the record for that day can belong to one period only.
//
// It returns one human-readable message per violating pair, e.g.
//
//	"household 01HZ...: 01J0... (2026-01-01 → 2026-01-05) overlaps 01J1... (2026-01-05 → 2026-01-09)"
func DetectOverlaps(periods []*TrackingPeriod) []string {
	byHousehold := make(map[string][]*TrackingPeriod)
	for _, p := range periods {
		if p.Status != StatusProgress {
			continue
		}
		byHousehold[p.HouseholdID] = append(byHousehold[p.HouseholdID], p)
	}

	households := make([]string, 0, len(byHousehold))
	for h := range byHousehold {
		households = append(households, h)
	}
	sort.Strings(households)

	var errs []string
	for _, h := range households {
		list := byHousehold[h]
		sort.Slice(list, func(i, j int) bool {
			return list[i].Began.Before(list[j].Began)
		})

		for i := 1; i < len(list); i++ {
			prev, curr := list[i-1], list[i]
			if !curr.Began.After(prev.Latest) {
				errs = append(errs, fmt.Sprintf(
					"household %s: %s (%s → %s) overlaps %s (%s → %s)",
					h,
					prev.ID, utils.FormatDay(prev.Began), utils.FormatDay(prev.Latest),
					curr.ID, utils.FormatDay(curr.Began), utils.FormatDay(curr.Latest),
				))
			}
		}
	}
	return errs
}
