package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	require.Equal(t, ErrInternal.Code, err.Code)
	require.Equal(t, http.StatusInternalServerError, err.Status)
	require.EqualError(t, err, "internal server error: boom")
}

func TestCloneKeepsIdentity(t *testing.T) {
	clone := Clone(ErrDraftNotFound, "no upload draft")
	require.Equal(t, "no upload draft", clone.Message)
	require.True(t, errors.Is(clone, ErrDraftNotFound))
	require.False(t, errors.Is(clone, ErrNotFound))
	require.Equal(t, "no saved draft", ErrDraftNotFound.Message)
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrValidation, map[string]string{"badge": "required"})
	require.Equal(t, map[string]string{"badge": "required"}, err.Details)
	require.Nil(t, ErrValidation.Details)
}
