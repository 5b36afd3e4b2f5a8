package group

import "github.com/dmitrymomot/fittrack/pkg/validator"

const (
	MaxNameLength = 100
	MaxGoalLength = 500
)

func Validate(in Input) error {
	return validator.Apply(
		validator.Required("name", in.Name),
		validator.MaxLen("name", in.Name, MaxNameLength),
		validator.MaxLen("goal", in.Goal, MaxGoalLength),
	)
}

func validateInviteEmail(email string) error {
	return validator.Apply(
		validator.Required("email", email),
		validator.ValidEmail("email", email),
	)
}
