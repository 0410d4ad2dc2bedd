package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurvoice/murmur-setup/internal/execx"
	"github.com/murmurvoice/murmur-setup/internal/execx/execxtest"
)

func TestFindRuntimeAcceptsFirstQualifyingCandidate(t *testing.T) {
	fake := execxtest.New()
	fake.Default = execxtest.Response{Result: execx.Result{ExitCode: 127}}
	fake.Script("python3.12 --version", execx.Result{ExitCode: 0, Stdout: "Python 3.12.1\n"}, nil)
	fake.Script("python3 --version", execx.Result{ExitCode: 0, Stdout: "Python 3.9.6\n"}, nil)

	p := New(fake)
	rt, err := p.FindRuntime(context.Background(), []string{"python3.13", "python3.12", "python3"}, "3.10")
	require.NoError(t, err)
	assert.Equal(t, "python3.12", rt.Command)
	assert.Equal(t, "3.12.1", rt.Version)
}

func TestFindRuntimeSkipsTooOldVersions(t *testing.T) {
	fake := execxtest.New()
	fake.Script("python3 --version", execx.Result{ExitCode: 0, Stdout: "Python 3.9.6\n"}, nil)
	fake.Default = execxtest.Response{Err: errors.New("not found")}

	p := New(fake)
	_, err := p.FindRuntime(context.Background(), []string{"python3"}, "3.10")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindRuntimeReadsStderrBanner(t *testing.T) {
	// Old Python prints --version on stderr.
	fake := execxtest.New()
	fake.Script("python3 --version", execx.Result{ExitCode: 0, Stderr: "Python 3.11.4\n"}, nil)

	p := New(fake)
	rt, err := p.FindRuntime(context.Background(), []string{"python3"}, "3.10")
	require.NoError(t, err)
	assert.Equal(t, "3.11.4", rt.Version)
}

func TestFindRuntimeNoCandidates(t *testing.T) {
	fake := execxtest.New()
	fake.Default = execxtest.Response{Err: errors.New("exec: not found")}

	p := New(fake)
	_, err := p.FindRuntime(context.Background(), []string{"python3.12", "python3"}, "3.10")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindRuntimeInvalidMinimum(t *testing.T) {
	p := New(execxtest.New())
	_, err := p.FindRuntime(context.Background(), []string{"python3"}, "not-a-version")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestHasCommand(t *testing.T) {
	fake := execxtest.New()
	fake.Script("brew --version", execx.Result{ExitCode: 0, Stdout: "Homebrew 4.2.0\n"}, nil)
	fake.Default = execxtest.Response{Err: errors.New("exec: not found")}

	p := New(fake)
	assert.True(t, p.HasCommand(context.Background(), "brew"))
	assert.False(t, p.HasCommand(context.Background(), "uv"))
}

func TestParseVersionLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Python 3.12.1\n", "3.12.1"},
		{"Homebrew 4.2.0-45-gdeadbee\n", "4.2.0"},
		{"Python 3.10\n", "3.10"},
		{"no version here\n", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseVersionLine(tt.in), "input %q", tt.in)
	}
}
