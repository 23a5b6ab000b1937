package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := Conflict("entry already exists for author %s", "u1")
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "entry already exists for author u1", err.Error())
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := NotFound("group not found")
	wrapped := fmt.Errorf("list group view: %w", inner)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindForbidden))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestInternal_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("failed to load group", cause)

	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load group: connection refused", err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "forbidden", KindForbidden.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "invalid_argument", KindInvalidArgument.String())
	assert.Equal(t, "internal", KindInternal.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
