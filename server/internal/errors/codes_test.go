package errors

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/hrygo/cartsync/server/service/cart"
	"github.com/hrygo/cartsync/server/service/video"
	"github.com/hrygo/cartsync/store"
	"github.com/hrygo/cartsync/store/cache"
)

// mutationFailure produces the error the coordinator returns for a rejected write.
func mutationFailure(t *testing.T, cause error) error {
	t.Helper()
	qc := cache.NewQueryCache()
	t.Cleanup(func() { _ = qc.Close() })
	return cache.NewCoordinator(qc, nil).Mutate(context.Background(), cache.MutationFunc{
		Name: "test",
		Fn:   func(context.Context) error { return cause },
	})
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"InvalidArgument", errors.Wrap(cart.ErrInvalidArgument, "quantity"), ErrCodeInvalidArgument, http.StatusBadRequest},
		{"InvalidVideo", errors.Wrap(video.ErrInvalidArgument, "title"), ErrCodeInvalidArgument, http.StatusBadRequest},
		{"NotFound", errors.Wrap(store.ErrNotFound, "recipe cart"), ErrCodeNotFound, http.StatusNotFound},
		{"MutationFailed", mutationFailure(t, errors.New("permission denied")), ErrCodeMutationFailed, http.StatusBadGateway},
		{"MutationOnMissingRow", mutationFailure(t, store.ErrNotFound), ErrCodeNotFound, http.StatusNotFound},
		{"Canceled", context.Canceled, ErrCodeContextCanceled, 499},
		{"Closed", cache.ErrClosed, ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"Unknown", errors.New("boom"), ErrCodeInternal, http.StatusInternalServerError},
		{"Passthrough", RateLimitExceeded("slow down"), ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromError(tt.err)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.HTTPStatus())
			assert.True(t, IsCode(apiErr, tt.code))
		})
	}
}

func TestAPIError(t *testing.T) {
	err := Wrap(errors.New("timeout"), ErrCodeFetchFailed, "load failed").WithContext("key", "recipe-carts:alice")
	assert.Equal(t, "[FETCH_FAILED] load failed: timeout", err.Error())
	assert.Equal(t, "recipe-carts:alice", err.Context["key"])
	assert.EqualError(t, errors.Cause(err.Unwrap()), "timeout")
	assert.Equal(t, "[NOT_FOUND] missing", NotFound("missing").Error())
}
