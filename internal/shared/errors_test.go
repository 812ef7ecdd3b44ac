package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&ValidationError{Field: "permission", Value: "Bogus"}, ErrValidation},
		{&NotFoundError{Entity: "role", ID: "9"}, ErrNotFound},
		{&ForbiddenError{Reason: "no active user"}, ErrForbidden},
		{&InternalError{Detail: "system role missing"}, ErrInternal},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.sentinel, tc.err.Error())
		assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tc.err), tc.sentinel)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `invalid permission: "Bogus"`, (&ValidationError{Field: "permission", Value: "Bogus"}).Error())
	assert.Equal(t, "role 9 not found", (&NotFoundError{Entity: "role", ID: "9"}).Error())
	assert.Equal(t, "role not found", (&NotFoundError{Entity: "role"}).Error())
	assert.Equal(t, "forbidden", (&ForbiddenError{}).Error())
	assert.Equal(t, "internal error: boom", (&InternalError{Detail: "boom"}).Error())
}

func TestTypedErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(&ForbiddenError{}, ErrNotFound))
	assert.False(t, errors.Is(&InternalError{}, ErrNotFound))
}

func TestRequestContext(t *testing.T) {
	t.Run("round trips through context", func(t *testing.T) {
		rc := &RequestContext{ActiveUserID: 7, ActiveChannelID: 1}
		ctx := ContextWithRequest(t.Context(), rc)
		assert.Equal(t, rc, RequestFromContext(ctx))
	})

	t.Run("absent context is anonymous", func(t *testing.T) {
		assert.Nil(t, RequestFromContext(t.Context()))
		assert.False(t, RequestFromContext(t.Context()).Authenticated())
	})

	t.Run("zero user id is anonymous", func(t *testing.T) {
		rc := &RequestContext{ActiveChannelID: 1}
		assert.False(t, rc.Authenticated())
	})
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 35)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 4, p.TotalPages)
	assert.Equal(t, 10, p.Offset())

	defaults := NewPagination(0, 0, 5)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 20, defaults.PerPage)
	assert.Equal(t, 0, defaults.Offset())
}
