package window

import (
	"errors"
	"testing"

	"github.com/c35s/hydra/present"
)

func TestRunReturnsError(t *testing.T) {
	boom := errors.New("boom")

	if err := Run(func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	if err := Run(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func TestRunNested(t *testing.T) {
	if !compiled {
		t.Skip("headless build")
	}

	err := Run(func() error {
		return Run(func() error { return nil })
	})

	if err == nil {
		t.Fatal("nested Run: want error")
	}
}

func TestOpenNeedsRun(t *testing.T) {
	want := present.ErrInit
	if !compiled {
		want = present.ErrUnsupported
	}

	_, err := open(libAuto, present.Config{Width: 4, Height: 4, Scale: 1, Title: "test"}, 1)
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		running, wants library
		ok             bool
	}{
		{libOpenGL, libOpenGL, true},
		{libAuto, libMetal, true},
		{libDirectX, libAuto, true},
		{libOpenGL, libMetal, false},
	}

	for _, tt := range tests {
		if got := tt.running.compatible(tt.wants); got != tt.ok {
			t.Errorf("%v.compatible(%v) = %v, want %v", tt.running, tt.wants, got, tt.ok)
		}
	}
}
