package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"invalid_argument":   InvalidArgument,
		"not_found":          NotFound,
		"invalid_state":      InvalidState,
		"resource_exhausted": ResourceExhausted,
		"timeout":            Timeout,
		"driver_error":       DriverError,
		"storage_error":      StorageError,
		"busy":               Busy,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestOf_UnwrapsThroughLayers(t *testing.T) {
	base := New(NotFound, "history.remove", "lab")
	wrapped := fmt.Errorf("control: %w", base)

	if got := Of(wrapped); got != NotFound {
		t.Fatalf("Of(wrapped) = %q, want not_found", got)
	}
	if !errors.Is(wrapped, NotFound) {
		t.Fatal("errors.Is should match the code through *E")
	}
	if got := Of(fmt.Errorf("x: %w", Timeout)); got != Timeout {
		t.Fatalf("Of(bare code) = %q", got)
	}
	if got := Of(errors.New("boom")); got != Error {
		t.Fatalf("Of(plain) = %q, want error", got)
	}
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be ok")
	}
}

func TestDriver_CarriesReason(t *testing.T) {
	cause := errors.New("esp_err_wifi_conn")
	err := Driver("radio.connect", 0x3007, cause)

	r, ok := ReasonOf(err)
	if !ok || r != 0x3007 {
		t.Fatalf("ReasonOf = %d,%v", r, ok)
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if Of(err) != DriverError {
		t.Fatalf("Of = %q", Of(err))
	}
	if Wrap(StorageError, "op", nil) != nil {
		t.Fatal("Wrap(nil) must stay nil")
	}
}
