package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// LengthRule bounds the password length in runes. The upper bound keeps
// Argon2 input sizes predictable.
func LengthRule(min, max int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		n := len([]rune(password))
		if n < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		if max > 0 && n > max {
			return &PasswordValidationError{
				Code:    "max_length",
				Message: fmt.Sprintf("password must be at most %d characters long", max),
			}
		}
		return nil
	})
}

// RequireCharacterClassesRule ensures the password mixes at least min of
// upper, lower, digit and symbol characters.
func RequireCharacterClassesRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if min <= 0 {
			return nil
		}

		seen := make(map[string]struct{}, 4)
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				seen["upper"] = struct{}{}
			case unicode.IsLower(r):
				seen["lower"] = struct{}{}
			case unicode.IsDigit(r):
				seen["digit"] = struct{}{}
			case unicode.IsSymbol(r) || unicode.IsPunct(r) || unicode.IsSpace(r):
				seen["symbol"] = struct{}{}
			}
		}

		if len(seen) >= min {
			return nil
		}

		return &PasswordValidationError{
			Code:    "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", min),
		}
	})
}

// RejectUserInputsRule refuses passwords containing the account name or the
// local part of the email.
func RejectUserInputsRule(inputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		lowered := strings.ToLower(password)
		for _, input := range inputs {
			input = strings.ToLower(strings.TrimSpace(input))
			if len(input) < 4 {
				continue
			}
			if strings.Contains(lowered, input) {
				return &PasswordValidationError{
					Code:    "contains_user_input",
					Message: "password must not contain your name or email",
				}
			}
		}
		return nil
	})
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject weak passwords.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	})
}
