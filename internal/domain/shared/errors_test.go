package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_MatchesKindAndUnderlying(t *testing.T) {
	underlying := errors.New("row vanished")
	err := WrapError("ledger", "SaveAccount", ErrConcurrentModification, "version mismatch", underlying)

	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "ledger.SaveAccount")
	assert.Contains(t, err.Error(), "version mismatch")
}

func TestDomainError_WithoutUnderlying(t *testing.T) {
	err := NewDomainError("reward", "GetByStudent", ErrNotFound, "student s1")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestDomainError_SurvivesWrapping(t *testing.T) {
	inner := WrapError("ledger", "Credit", ErrTransientFailure, "tx failed", errors.New("broken pipe"))
	outer := fmt.Errorf("award_points: %w", inner)

	assert.ErrorIs(t, outer, ErrTransientFailure)
	assert.True(t, IsRetryable(outer))

	var domainErr *DomainError
	require.True(t, errors.As(outer, &domainErr))
	assert.Equal(t, "Credit", domainErr.Op)
}

func TestIsValidation_CoversTheValidationFamily(t *testing.T) {
	for _, sentinel := range []error{
		ErrValidation, ErrInvalidID, ErrInvalidInput,
		ErrEmptyValue, ErrNegativeValue, ErrValueOutOfRange,
	} {
		assert.True(t, IsValidation(fmt.Errorf("check: %w", sentinel)))
	}
	assert.False(t, IsValidation(ErrNotFound))
}

func TestIsConfiguration(t *testing.T) {
	assert.True(t, IsConfiguration(fmt.Errorf("weights: %w", ErrConfiguration)))
	assert.False(t, IsConfiguration(ErrTransientFailure))
}

func TestIsRetryable_TransientTaxonomy(t *testing.T) {
	assert.True(t, IsRetryable(ErrTransientFailure))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrConcurrentModification))
	assert.False(t, IsRetryable(ErrValidation))
}
