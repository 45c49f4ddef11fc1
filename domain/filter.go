package domain

import (
	"fmt"
	"strings"
)

// Status selects tasks by completion state.
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// ParseStatus maps a status query value to a Status. An empty value means
// no filtering, anything unrecognized is a ValidationError.
func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("Unknown status %q.", v)}
}

// Filter narrows a task listing. The zero value matches everything.
type Filter struct {
	Status Status
	Query  string
}

// Apply returns the tasks matching the filter, preserving input order.
// Status is applied before the text query, and the query matches as a
// case-insensitive substring of title or description.
func (f Filter) Apply(tasks []Task) []Task {
	out := tasks
	if f.Status == StatusActive || f.Status == StatusCompleted {
		wantDone := f.Status == StatusCompleted
		filtered := make([]Task, 0, len(out))
		for _, t := range out {
			if t.Done == wantDone {
				filtered = append(filtered, t)
			}
		}
		out = filtered
	}
	if q := strings.ToLower(f.Query); q != "" {
		filtered := make([]Task, 0, len(out))
		for _, t := range out {
			if strings.Contains(strings.ToLower(t.Title), q) ||
				strings.Contains(strings.ToLower(t.Description), q) {
				filtered = append(filtered, t)
			}
		}
		out = filtered
	}
	return out
}
