package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringValidation(t *testing.T) {
	assert.False(t, NewStringValidation("").Validate())
	assert.True(t, NewStringValidation("").WithRequired(false).WithMinLength(3).Validate())
	assert.False(t, NewStringValidation("ab").WithMinLength(3).Validate())
	assert.True(t, NewStringValidation("çğü").WithMaxLength(3).Validate(), "length counts runes")
	assert.False(t, NewStringValidation("abcd").WithMaxLength(3).Validate())
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))

	for _, ok := range []string{"ada@example.com", "a.b+c@uni.edu.tr", "x@y.museum"} {
		assert.True(t, IsValidEmail(ok), ok)
	}
	for _, bad := range []string{"", "ada", "ada@", "@example.com", "ada@example", "ada example@x.com"} {
		assert.False(t, IsValidEmail(bad), bad)
	}
}

func TestNamesAndPasswords(t *testing.T) {
	assert.True(t, IsValidUserName("Ada"))
	assert.False(t, IsValidUserName(""))
	assert.False(t, IsValidUserName(strings.Repeat("a", 101)))

	assert.True(t, IsValidTopicName(strings.Repeat("t", 200)))
	assert.False(t, IsValidTopicName(strings.Repeat("t", 201)))

	assert.True(t, IsStrongPassword("secret", 0))
	assert.False(t, IsStrongPassword("short", 0))
	assert.False(t, IsStrongPassword("secret", 8))
}
