package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_PublicHidesCause(t *testing.T) {
	err := Storage(errors.New("connection refused"), "insert span")

	apiErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindStorage, apiErr.Kind)
	assert.Equal(t, "internal error", apiErr.Public())
	assert.Contains(t, apiErr.Error(), "connection refused")
}

func TestValidation_PublicIsVerbatim(t *testing.T) {
	err := Validation("unknown column %q", "foo")

	apiErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, `unknown column "foo"`, apiErr.Public())
}

func TestBackpressure_CarriesRetryAfter(t *testing.T) {
	err := Backpressure(5, "topic full")

	apiErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, 5, apiErr.RetryAfter)
	assert.Equal(t, KindBackpressure, apiErr.Kind)
}

func TestAs_UnwrapsNestedError(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NotFound("trace not found"))

	apiErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, apiErr.Kind)
}

func TestAs_ReturnsFalseForPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}
