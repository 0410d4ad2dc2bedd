package execx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunCapturesStdout(t *testing.T) {
	r := New(0)
	res, err := r.Run(context.Background(), Spec{Program: "echo", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Ok() {
		t.Errorf("expected exit 0, got %d", res.ExitCode)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("unexpected stdout: %q", res.Stdout)
	}
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	r := New(0)
	res, err := r.Run(context.Background(), Spec{Program: "false"})
	if err != nil {
		t.Fatalf("non-zero exit should not surface as error, got: %v", err)
	}
	if res.Ok() {
		t.Error("expected non-zero exit code")
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := New(0)
	res, err := r.Run(context.Background(), Spec{Program: "definitely-not-a-real-binary-xyz"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if res.ExitCode != -1 {
		t.Errorf("expected exit code -1, got %d", res.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	r := New(50 * time.Millisecond)
	_, err := r.Run(context.Background(), Spec{Program: "sleep", Args: []string{"5"}})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}
}

func TestSpecString(t *testing.T) {
	s := Spec{Program: "pip", Args: []string{"install", "numpy"}}
	if got := s.String(); got != "pip install numpy" {
		t.Errorf("unexpected spec string: %q", got)
	}
}
