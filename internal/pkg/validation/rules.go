package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation rule patterns
var (
	// Email validation pattern, applied to lowercased input
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// Password min length when not configured
	PasswordMinLength = 6

	// Name validation max lengths
	UserNameMaxLength  = 100
	TopicNameMaxLength = 200
	EmailMaxLength     = 255
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Email *regexp.Regexp
}{
	Email: regexp.MustCompile(EmailPattern),
}

// StringValidation checks a string against a set of rules
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length in characters
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length in characters
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}

	length := utf8.RuneCountInString(v.Value)
	if v.MinLen > 0 && length < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && length > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether a normalized email is well formed
func IsValidEmail(email string) bool {
	return NewStringValidation(email).
		WithMaxLength(EmailMaxLength).
		WithPattern(CompiledPatterns.Email).
		Validate()
}

// IsValidUserName reports whether a trimmed display name is acceptable
func IsValidUserName(name string) bool {
	return NewStringValidation(name).WithMaxLength(UserNameMaxLength).Validate()
}

// IsValidTopicName reports whether a trimmed topic name fits the length limit
func IsValidTopicName(name string) bool {
	return NewStringValidation(name).WithMaxLength(TopicNameMaxLength).Validate()
}

// IsStrongPassword checks the minimum length. minLength <= 0 uses the default.
func IsStrongPassword(password string, minLength int) bool {
	if minLength <= 0 {
		minLength = PasswordMinLength
	}
	return NewStringValidation(password).WithMinLength(minLength).Validate()
}
