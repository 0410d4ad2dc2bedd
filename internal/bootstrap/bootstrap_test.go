package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurvoice/murmur-setup/internal/execx"
	"github.com/murmurvoice/murmur-setup/internal/execx/execxtest"
)

func TestSupportsAutomatedPath(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		hasBrew bool
		want    bool
	}{
		{"darwin always supported", "darwin", false, true},
		{"linux with brew", "linux", true, true},
		{"linux without brew", "linux", false, false},
		{"windows without brew", "windows", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := execxtest.New()
			if tt.hasBrew {
				fake.Script("brew --version", execx.Result{ExitCode: 0, Stdout: "Homebrew 4.2.0\n"}, nil)
			} else {
				fake.Default = execxtest.Response{Err: errors.New("exec: not found")}
			}

			b := &Bootstrapper{Runner: fake, GOOS: tt.goos}
			assert.Equal(t, tt.want, b.SupportsAutomatedPath(context.Background()))
		})
	}
}

func TestEnsureBrewSkipsWhenPresent(t *testing.T) {
	fake := execxtest.New()
	fake.Script("brew --version", execx.Result{ExitCode: 0, Stdout: "Homebrew 4.2.0\n"}, nil)

	b := &Bootstrapper{Runner: fake, GOOS: "darwin"}
	installed, err := b.EnsureBrew(context.Background())
	require.NoError(t, err)
	assert.False(t, installed)
	// Only the probe ran; no bootstrap invocation.
	assert.Len(t, fake.Calls, 1)
}

func TestEnsureBrewBootstrapsOnDarwin(t *testing.T) {
	fake := execxtest.New()
	fake.Handler = func(spec execx.Spec) (execx.Result, error) {
		if spec.Program == "brew" {
			return execx.Result{ExitCode: 127}, errors.New("exec: not found")
		}
		return execx.Result{ExitCode: 0}, nil
	}

	b := &Bootstrapper{Runner: fake, GOOS: "darwin"}
	installed, err := b.EnsureBrew(context.Background())
	require.NoError(t, err)
	assert.True(t, installed)

	require.Len(t, fake.Calls, 2)
	assert.Equal(t, "/bin/bash", fake.Calls[1].Program)
}

func TestEnsureBrewFailsOffPlatform(t *testing.T) {
	fake := execxtest.New()
	fake.Default = execxtest.Response{Err: errors.New("exec: not found")}

	b := &Bootstrapper{Runner: fake, GOOS: "linux"}
	_, err := b.EnsureBrew(context.Background())
	assert.Error(t, err)
}

func TestInstallRuntimeSurfacesStderr(t *testing.T) {
	fake := execxtest.New()
	fake.Script("brew install python@3.12",
		execx.Result{ExitCode: 1, Stderr: "Error: formula requires Xcode\nmore detail\n"}, nil)

	b := &Bootstrapper{Runner: fake, GOOS: "darwin"}
	err := b.InstallRuntime(context.Background(), "python@3.12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formula requires Xcode")
	assert.NotContains(t, err.Error(), "more detail")
}

func TestInstallRuntimeSuccess(t *testing.T) {
	fake := execxtest.New()
	b := &Bootstrapper{Runner: fake, GOOS: "darwin"}
	assert.NoError(t, b.InstallRuntime(context.Background(), "python@3.12"))
	assert.Equal(t, []string{"brew install python@3.12"}, fake.CommandLines())
}
