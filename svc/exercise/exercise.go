// Package exercise records logged lifts and derives the list view and
// dashboard numbers from them.
package exercise

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrymomot/fittrack/svc/units"
)

type Type string

const (
	TypeMachine Type = "machine"
	TypeFree    Type = "free"
)

func (t Type) Label() string {
	switch t {
	case TypeMachine:
		return "Machine"
	case TypeFree:
		return "Free Weights"
	default:
		return string(t)
	}
}

var (
	ErrNotFound = errors.New("exercise.not_found")
	ErrNoUser   = errors.New("exercise.no_user")
)

// Exercise is one logged lift. Date is a calendar day stored at UTC midnight.
type Exercise struct {
	ID         string
	UserID     string
	Date       time.Time
	Name       string
	Type       Type
	Weight     float64
	WeightUnit units.Unit
	Sets       int
	Reps       []int
	Notes      string
	CreatedAt  time.Time
}

func (e Exercise) GetID() string { return e.ID }

// Volume is weight times sets, in the exercise's own unit.
func (e Exercise) Volume() float64 { return e.Weight * float64(e.Sets) }

// Input is what the new and edit forms submit.
type Input struct {
	Date       time.Time
	Name       string
	Type       Type
	Weight     float64
	WeightUnit units.Unit
	Sets       int
	Reps       []int
	Notes      string
}

// FromExercise pre-fills the edit form.
func FromExercise(e Exercise) Input {
	return Input{
		Date:       e.Date,
		Name:       e.Name,
		Type:       e.Type,
		Weight:     e.Weight,
		WeightUnit: e.WeightUnit,
		Sets:       e.Sets,
		Reps:       append([]int(nil), e.Reps...),
		Notes:      e.Notes,
	}
}

func (in Input) normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Notes = strings.TrimSpace(in.Notes)
	if !in.Date.IsZero() {
		in.Date = Day(in.Date)
	}
	return in
}

func (in Input) apply(e *Exercise) {
	e.Date = in.Date
	e.Name = in.Name
	e.Type = in.Type
	e.Weight = in.Weight
	e.WeightUnit = in.WeightUnit
	e.Sets = in.Sets
	e.Reps = append([]int(nil), in.Reps...)
	e.Notes = in.Notes
}

// Day truncates t to its calendar day, expressed at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
