package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIncompleteIsCorrupt(t *testing.T) {
	err := fmt.Errorf("open shard.idx: %w", ErrIndexIncomplete)
	if !errors.Is(err, ErrIndexCorrupt) {
		t.Error("incomplete index does not match ErrIndexCorrupt")
	}
	if errors.Is(fmt.Errorf("x: %w", ErrIndexCorrupt), ErrIndexIncomplete) {
		t.Error("plain corruption matched ErrIndexIncomplete")
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("q: %w", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("q: %w", ErrNotFound), http.StatusNotFound},
		{ErrShardUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("read: %w", ErrIndexUnreadable), http.StatusBadGateway},
		{New(ErrInternal, http.StatusTeapot, "custom"), http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatusCode(tt.err); got != tt.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
