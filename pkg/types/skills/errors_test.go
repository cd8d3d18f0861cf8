package skills

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidationErrorDetails(t *testing.T) {
	err := NewValidationErrorf("invalid skill metadata", "name: required", "description: required")

	assert.Equal(t, []string{"name: required", "description: required"}, err.Details())
	assert.Equal(t, "invalid skill metadata: name: required; description: required", err.Error())
	assert.True(t, IsValidation(errors.Wrap(err, "parse")))
	assert.False(t, IsNotFound(err))
}

func TestNotFoundError(t *testing.T) {
	err := errors.Wrap(&NotFoundError{Name: "missing"}, "lookup")

	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "skill not found: missing")
}

func TestRegistryUnreachableError(t *testing.T) {
	err := &RegistryUnreachableError{URL: "https://example.com/index.json", Err: errors.New("dial tcp")}

	assert.True(t, IsRegistryUnreachable(err))
	assert.Contains(t, err.Error(), "https://example.com/index.json")
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestSafeguardResultFailed(t *testing.T) {
	result := &SafeguardResult{Checks: []SafeguardCheck{
		{Name: "a", Passed: true, Severity: SeverityInfo},
		{Name: "b", Passed: false, Severity: SeverityWarning},
		{Name: "c", Passed: false, Severity: SeverityError},
	}}

	failed := result.Failed()
	assert.Len(t, failed, 2)
	assert.False(t, failed[0].Blocking())
	assert.True(t, failed[1].Blocking())
}

func TestEnums(t *testing.T) {
	assert.True(t, CategoryData.Valid())
	assert.False(t, Category("invalid").Valid())
	assert.True(t, TrustOfficial.Valid())
	assert.False(t, TrustLevel("gold").Valid())
}
