package strx

import "testing"

func TestCString(t *testing.T) {
	if got := CString([]byte{'l', 'a', 'b', 0, 'x'}); got != "lab" {
		t.Fatalf("got %q", got)
	}
	if got := CString([]byte("full")); got != "full" {
		t.Fatalf("got %q", got)
	}
}

func TestCoalesceAndMask(t *testing.T) {
	if Coalesce("", "d") != "d" || Coalesce("s", "d") != "s" {
		t.Fatal("coalesce")
	}
	if Mask("hunter2") != "h***" || Mask("") != "" {
		t.Fatal("mask")
	}
}
