package schedule

import (
	"fmt"

	"schoolcal/internal/model"
)

// PeriodRegistry is a static lookup from period ID to its time-of-day
// interval. Built once from configuration, never mutated afterwards.
type PeriodRegistry struct {
	periods map[string]model.Period
}

// NewPeriodRegistry builds a registry from the given periods.
func NewPeriodRegistry(periods []model.Period) *PeriodRegistry {
	m := make(map[string]model.Period, len(periods))
	for _, p := range periods {
		m[p.ID] = p
	}
	return &PeriodRegistry{periods: m}
}

// Resolve returns the period for the given ID, or ErrUnknownPeriod.
func (r *PeriodRegistry) Resolve(id string) (model.Period, error) {
	p, ok := r.periods[id]
	if !ok {
		return model.Period{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, id)
	}
	return p, nil
}

// SubjectRegistry is a static lookup from subject ID to its display label.
type SubjectRegistry struct {
	subjects map[string]model.Subject
}

// NewSubjectRegistry builds a registry from the given subjects.
func NewSubjectRegistry(subjects []model.Subject) *SubjectRegistry {
	m := make(map[string]model.Subject, len(subjects))
	for _, s := range subjects {
		m[s.ID] = s
	}
	return &SubjectRegistry{subjects: m}
}

// Resolve returns the subject for the given ID, or ErrUnknownSubject.
func (r *SubjectRegistry) Resolve(id string) (model.Subject, error) {
	s, ok := r.subjects[id]
	if !ok {
		return model.Subject{}, fmt.Errorf("%w: %q", ErrUnknownSubject, id)
	}
	return s, nil
}
