package venv

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurvoice/murmur-setup/internal/config"
	"github.com/murmurvoice/murmur-setup/internal/execx"
	"github.com/murmurvoice/murmur-setup/internal/execx/execxtest"
)

type fakeLog struct {
	upserts map[string]string
}

func (f *fakeLog) UpsertPackage(name, version string) error {
	if f.upserts == nil {
		f.upserts = map[string]string{}
	}
	f.upserts[name] = version
	return nil
}

func deps(names ...string) []config.PackageConfig {
	out := make([]config.PackageConfig, len(names))
	for i, n := range names {
		out[i] = config.PackageConfig{Name: n}
	}
	return out
}

func newTestInstaller(t *testing.T, fake *execxtest.FakeRunner) (*Installer, *fakeLog) {
	t.Helper()
	log := &fakeLog{}
	env := New(filepath.Join(t.TempDir(), "venv"), fake)
	env.GOOS = "linux"
	return &Installer{Env: env, Log: log, Out: &bytes.Buffer{}}, log
}

func TestInstallAllSucceed(t *testing.T) {
	fake := execxtest.New()
	fake.Handler = func(spec execx.Spec) (execx.Result, error) {
		if len(spec.Args) >= 3 && spec.Args[2] == "show" {
			return execx.Result{ExitCode: 0, Stdout: "Name: x\nVersion: 1.2.3\n"}, nil
		}
		return execx.Result{ExitCode: 0}, nil
	}

	inst, log := newTestInstaller(t, fake)
	res := inst.Install(context.Background(), deps("numpy", "rich"))

	assert.True(t, res.Success())
	assert.Equal(t, []string{"numpy", "rich"}, res.Installed)
	assert.Empty(t, res.Failed)
	assert.Equal(t, "1.2.3", log.upserts["numpy"])
	assert.Equal(t, "1.2.3", log.upserts["rich"])
}

func TestInstallOneFailureDoesNotBlockTheRest(t *testing.T) {
	fake := execxtest.New()
	fake.Handler = func(spec execx.Spec) (execx.Result, error) {
		if len(spec.Args) >= 4 && spec.Args[2] == "install" && spec.Args[3] == "b" {
			return execx.Result{ExitCode: 1, Stderr: "no matching distribution"}, nil
		}
		if len(spec.Args) >= 3 && spec.Args[2] == "show" {
			return execx.Result{ExitCode: 0, Stdout: "Version: 0.1\n"}, nil
		}
		return execx.Result{ExitCode: 0}, nil
	}

	inst, log := newTestInstaller(t, fake)
	res := inst.Install(context.Background(), deps("a", "b", "c"))

	assert.False(t, res.Success())
	assert.Equal(t, []string{"a", "c"}, res.Installed)
	assert.Equal(t, []string{"b"}, res.Failed)

	// a and c made it into the log; b did not.
	assert.Contains(t, log.upserts, "a")
	assert.Contains(t, log.upserts, "c")
	assert.NotContains(t, log.upserts, "b")
}

func TestInstallVersionQueryFallsBackToUnknown(t *testing.T) {
	fake := execxtest.New()
	fake.Handler = func(spec execx.Spec) (execx.Result, error) {
		if len(spec.Args) >= 3 && spec.Args[2] == "show" {
			return execx.Result{ExitCode: 1}, nil
		}
		return execx.Result{ExitCode: 0}, nil
	}

	inst, log := newTestInstaller(t, fake)
	res := inst.Install(context.Background(), deps("sounddevice"))

	require.True(t, res.Success())
	assert.Equal(t, "unknown", log.upserts["sounddevice"])
}

func TestInstallInvokesPipInOrder(t *testing.T) {
	fake := execxtest.New()
	inst, _ := newTestInstaller(t, fake)
	inst.Install(context.Background(), deps("first", "second"))

	var installs []string
	for _, line := range fake.CommandLines() {
		if strings.Contains(line, "pip install") {
			installs = append(installs, line)
		}
	}
	require.Len(t, installs, 2)
	assert.Contains(t, installs[0], "first")
	assert.Contains(t, installs[1], "second")
}

func TestRemediationCommand(t *testing.T) {
	inst, _ := newTestInstaller(t, execxtest.New())
	cmd := inst.RemediationCommand("openai-whisper")
	assert.Contains(t, cmd, "-m pip install openai-whisper")
	assert.Contains(t, cmd, inst.Env.Python())
}
