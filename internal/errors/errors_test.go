package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapStoreUnavailable(t *testing.T) {
	err := WrapStoreUnavailable("find bans", context.DeadlineExceeded)

	require.ErrorIs(t, err, ErrorStoreUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, errors.Is(err, ErrorDuplicate))
	require.Contains(t, err.Error(), "find bans")
}
