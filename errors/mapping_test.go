package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapToHTTPStatus(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("get: %w", ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("update: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: bigtable: timeout", ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: no Id", ErrDataIntegrity), http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	} {
		require.Equal(t, tc.status, MapToHTTPStatus(tc.err), "%v", tc.err)
	}
}
