package security

import (
	"strings"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/core/port"
)

// PasswordPolicyConfig holds the thresholds applied to new passwords.
type PasswordPolicyConfig struct {
	MinLength      int
	MaxLength      int
	MinClasses     int
	MinZxcvbnScore int
}

// DefaultPasswordPolicyConfig mirrors the service defaults.
func DefaultPasswordPolicyConfig() PasswordPolicyConfig {
	return PasswordPolicyConfig{
		MinLength:      8,
		MaxLength:      128,
		MinClasses:     2,
		MinZxcvbnScore: 2,
	}
}

// PasswordPolicy adapts the rule-based validator to port.PasswordPolicyValidator,
// feeding the user's own inputs into the contextual rules.
type PasswordPolicy struct {
	cfg PasswordPolicyConfig
}

// NewPasswordPolicy builds a policy from cfg.
func NewPasswordPolicy(cfg PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{cfg: cfg}
}

// Validate ensures the password meets policy requirements.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	cfg := DefaultPasswordPolicyConfig()
	if p != nil {
		cfg = p.cfg
	}

	inputs := make([]string, 0, 2)
	if name := strings.TrimSpace(ctx.Name); name != "" {
		inputs = append(inputs, name)
	}
	if local, _, ok := strings.Cut(ctx.Email, "@"); ok && local != "" {
		inputs = append(inputs, local)
	}

	return NewPasswordValidator(
		LengthRule(cfg.MinLength, cfg.MaxLength),
		RequireCharacterClassesRule(cfg.MinClasses),
		RejectUserInputsRule(inputs...),
		RequirePasswordStrengthRule(cfg.MinZxcvbnScore, inputs...),
	).Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
