package validator

import (
	"strings"
	"unicode"
)

// PasswordSpecialChars is the set accepted by PasswordSpecialChar.
const PasswordSpecialChars = "!@#$%^&*"

const minPasswordLength = 8

func PasswordMinLength(field, value string) Rule {
	return rule(field, "Password must be at least 8 characters long", "validation.password_length", func() bool {
		return len(value) >= minPasswordLength
	})
}

func PasswordUppercase(field, value string) Rule {
	return rule(field, "Password must contain at least one uppercase letter", "validation.password_uppercase", func() bool {
		return hasUpper(value)
	})
}

func PasswordDigit(field, value string) Rule {
	return rule(field, "Password must contain at least one number", "validation.password_digit", func() bool {
		return hasDigit(value)
	})
}

func PasswordSpecialChar(field, value string) Rule {
	return rule(field, "Password must contain at least one special character (!@#$%^&*)", "validation.password_special", func() bool {
		return strings.ContainsAny(value, PasswordSpecialChars)
	})
}

// Password returns the registration password rules in display order.
func Password(field, value string) []Rule {
	return []Rule{
		PasswordMinLength(field, value),
		PasswordUppercase(field, value),
		PasswordDigit(field, value),
		PasswordSpecialChar(field, value),
	}
}

type Strength string

const (
	StrengthNone   Strength = ""
	StrengthWeak   Strength = "Weak"
	StrengthMedium Strength = "Medium"
	StrengthStrong Strength = "Strong"
)

// PasswordStrength rates a password for the registration meter. Anything
// shorter than 8 characters is Weak; otherwise uppercase, digit and special
// character each count, all three is Strong and any two is Medium.
func PasswordStrength(password string) Strength {
	if password == "" {
		return StrengthNone
	}
	if len(password) < minPasswordLength {
		return StrengthWeak
	}
	score := 0
	for _, ok := range []bool{hasUpper(password), hasDigit(password), strings.ContainsAny(password, PasswordSpecialChars)} {
		if ok {
			score++
		}
	}
	switch score {
	case 3:
		return StrengthStrong
	case 2:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

func hasUpper(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
