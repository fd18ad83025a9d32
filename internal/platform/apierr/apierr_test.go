package apierr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestFromClassifiesSentinels(t *testing.T) {
	if got := From(fmt.Errorf("files: %w", ErrInvalidArgument)); got.Status != http.StatusBadRequest {
		t.Fatalf("invalid argument -> %d", got.Status)
	}
	if got := From(ErrTurnInFlight); got.Status != http.StatusConflict || got.Code != "turn_in_flight" {
		t.Fatalf("turn in flight -> %d %s", got.Status, got.Code)
	}
	custom := New(http.StatusTeapot, "teapot", nil)
	if got := From(fmt.Errorf("wrap: %w", custom)); got != custom {
		t.Fatalf("expected existing *Error to pass through")
	}
	if From(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
