package exercise

import (
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/units"
)

const (
	MaxNameLength = 100
	MinSets       = 1
	MaxSets       = 50
)

// Validate checks a form submission. Field names match the form inputs.
func Validate(in Input) error {
	return validator.Apply(
		validator.Required("exercise_name", in.Name),
		validator.MaxLen("exercise_name", in.Name, MaxNameLength),
		validator.OneOf("type", in.Type, TypeMachine, TypeFree),
		validator.Min("weight", in.Weight, 0),
		validator.OneOf("weight_unit", in.WeightUnit, units.All()...),
		validator.Between("sets", in.Sets, MinSets, MaxSets),
		validator.LenEq("reps", in.Reps, in.Sets),
		validator.Each("reps", in.Reps, "Reps cannot be negative", func(r int) bool { return r >= 0 }),
		validator.NotZeroTime("date", in.Date),
	)
}
