package validator

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

func Required(field, value string) Rule {
	return rule(field, "field is required", "validation.required", func() bool {
		return strings.TrimSpace(value) != ""
	})
}

func MinLen(field, value string, min int) Rule {
	return rule(field, fmt.Sprintf("must be at least %d characters long", min), "validation.min_length", func() bool {
		return utf8.RuneCountInString(value) >= min
	})
}

func MaxLen(field, value string, max int) Rule {
	return rule(field, fmt.Sprintf("must be at most %d characters long", max), "validation.max_length", func() bool {
		return utf8.RuneCountInString(value) <= max
	})
}

// ValidEmail requires an address with a local part and a dotted domain.
func ValidEmail(field, value string) Rule {
	return rule(field, "must be a valid email address", "validation.email", func() bool {
		addr, err := mail.ParseAddress(strings.TrimSpace(value))
		if err != nil || addr.Address != strings.TrimSpace(value) {
			return false
		}
		local, domain, ok := strings.Cut(addr.Address, "@")
		if !ok || local == "" {
			return false
		}
		return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
	})
}

func OneOf[T comparable](field string, value T, options ...T) Rule {
	return rule(field, "has an unsupported value", "validation.one_of", func() bool {
		return slices.Contains(options, value)
	})
}

func Min[T Numeric](field string, value, min T) Rule {
	return rule(field, fmt.Sprintf("must be at least %v", min), "validation.min", func() bool {
		return value >= min
	})
}

func Between[T Numeric](field string, value, min, max T) Rule {
	return rule(field, fmt.Sprintf("must be between %v and %v", min, max), "validation.between", func() bool {
		return value >= min && value <= max
	})
}

// Each applies check to every element; the message names the first offender.
func Each[T any](field string, values []T, message string, check func(T) bool) Rule {
	return rule(field, message, "validation.each", func() bool {
		for _, v := range values {
			if !check(v) {
				return false
			}
		}
		return true
	})
}

func LenEq[T any](field string, values []T, n int) Rule {
	return rule(field, fmt.Sprintf("must have exactly %d entries", n), "validation.len", func() bool {
		return len(values) == n
	})
}

func NotZeroTime(field string, value time.Time) Rule {
	return rule(field, "field is required", "validation.required", func() bool {
		return !value.IsZero()
	})
}

// NotAfter rejects times later than limit.
func NotAfter(field string, value, limit time.Time) Rule {
	return rule(field, "cannot be in the future", "validation.not_future", func() bool {
		return !value.After(limit)
	})
}

func ValidUUID(field, value string) Rule {
	return rule(field, "must be a valid identifier", "validation.uuid", func() bool {
		_, err := uuid.Parse(value)
		return err == nil
	})
}

// Equal checks a confirmation field against the original value.
func Equal(field, value, other, message string) Rule {
	return rule(field, message, "validation.equal", func() bool {
		return value == other
	})
}
