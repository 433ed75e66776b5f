// Package validation provides custom validation rules for the application.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/btsguard/internal/errors"
)

var (
	// interfaceRegex matches Linux network interface names (IFNAMSIZ minus the terminator).
	interfaceRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,15}$`)
	// operatorRegex matches operator login names.
	operatorRegex = regexp.MustCompile(`^[a-z][a-z0-9_.-]{1,31}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PasswordStrength validates password meets minimum security requirements
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// Validate checks if the password meets the configured requirements
func (p PasswordStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}

	if len(s) < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			fmt.Sprintf("password must be at least %d characters", p.MinLength),
		)
	}

	if p.RequireUpper && !containsRune(s, unicode.IsUpper) {
		return validation.NewError(
			"validation_password_uppercase",
			"password must contain at least one uppercase letter",
		)
	}

	if p.RequireLower && !containsRune(s, unicode.IsLower) {
		return validation.NewError(
			"validation_password_lowercase",
			"password must contain at least one lowercase letter",
		)
	}

	if p.RequireNumber && !containsRune(s, unicode.IsNumber) {
		return validation.NewError("validation_password_number", "password must contain at least one number")
	}

	if p.RequireSpecial && !containsRune(s, isSpecial) {
		return validation.NewError(
			"validation_password_special",
			"password must contain at least one special character",
		)
	}

	return nil
}

func containsRune(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if pred(r) {
			return true
		}
	}
	return false
}

func isSpecial(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// OperatorName validates an operator login name.
var OperatorName = validation.NewStringRuleWithError(
	operatorRegex.MatchString,
	validation.NewError(
		"validation_operator_name",
		"must start with a lowercase letter and contain only a-z, 0-9, '_', '.', '-' (2-32 chars)",
	),
)

// InterfaceName validates a network interface name such as eth0 or wlan0.
var InterfaceName = validation.NewStringRuleWithError(
	interfaceRegex.MatchString,
	validation.NewError("validation_interface_name", "must be a valid network interface name"),
)

// Digits returns a rule accepting only decimal strings with a length in [min, max].
func Digits(min, max int) validation.Rule {
	return validation.NewStringRuleWithError(
		func(s string) bool {
			if len(s) < min || len(s) > max {
				return false
			}
			for _, r := range s {
				if r < '0' || r > '9' {
					return false
				}
			}
			return true
		},
		validation.NewError("validation_digits", fmt.Sprintf("must be %d to %d decimal digits", min, max)),
	)
}

// AddressList validates a comma separated list of IP addresses or CIDR blocks.
var AddressList = validation.NewStringRuleWithError(
	func(s string) bool {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				return false
			}
			if strings.Contains(part, "/") {
				if _, _, err := net.ParseCIDR(part); err != nil {
					return false
				}
				continue
			}
			if net.ParseIP(part) == nil {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_address_list", "must be a comma separated list of IP addresses or CIDR blocks"),
)

// AbsolutePath validates a filesystem path is absolute.
var AbsolutePath = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.HasPrefix(s, "/")
	},
	validation.NewError("validation_absolute_path", "must be an absolute path"),
)
