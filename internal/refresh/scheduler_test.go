package refresh

import (
	"context"
	"errors"
	"testing"
)

func TestNewRejectsMalformedCronSpec(t *testing.T) {
	_, err := New("not a cron spec", func(ctx context.Context) (bool, error) { return false, nil }, nil)
	if err == nil {
		t.Fatalf("expected an error for a malformed cron spec")
	}
}

func TestTickReportsRefresh(t *testing.T) {
	called := false
	s, err := New("0 4 * * *", func(ctx context.Context) (bool, error) {
		called = true
		return true, nil
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.tick()
	if !called {
		t.Fatalf("expected tick to invoke fn")
	}
}

func TestTickSwallowsFuncError(t *testing.T) {
	s, err := New("0 4 * * *", func(ctx context.Context) (bool, error) {
		return false, errors.New("dump fetch failed")
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.tick() // must not panic
}

func TestStartStopDoesNotBlock(t *testing.T) {
	s, err := New("0 4 * * *", func(ctx context.Context) (bool, error) { return false, nil }, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Start()
	s.Stop()
}
