package version

import "testing"

func TestString(t *testing.T) {
	got := String("tf-echo")
	want := "tf-echo dev (unknown, built unknown)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
