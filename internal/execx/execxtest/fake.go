// Package execxtest provides a scripted Runner for tests so that no real
// subprocesses are spawned.
package execxtest

import (
	"context"
	"sync"

	"github.com/murmurvoice/murmur-setup/internal/execx"
)

// Response is the scripted outcome for one command line.
type Response struct {
	Result execx.Result
	Err    error
}

// FakeRunner returns scripted responses keyed by the rendered command
// line (execx.Spec.String()). Unscripted commands get Default, which is
// a zero exit with empty output unless overridden. All calls are recorded.
type FakeRunner struct {
	mu        sync.Mutex
	Responses map[string]Response
	Default   Response
	Handler   func(spec execx.Spec) (execx.Result, error)
	Calls     []execx.Spec
}

// New returns an empty FakeRunner where every command succeeds.
func New() *FakeRunner {
	return &FakeRunner{Responses: map[string]Response{}}
}

// Script registers a response for the exact command line.
func (f *FakeRunner) Script(cmdline string, res execx.Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[cmdline] = Response{Result: res, Err: err}
}

// Run implements execx.Runner.
func (f *FakeRunner) Run(_ context.Context, spec execx.Spec) (execx.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, spec)

	if f.Handler != nil {
		return f.Handler(spec)
	}
	if resp, ok := f.Responses[spec.String()]; ok {
		return resp.Result, resp.Err
	}
	return f.Default.Result, f.Default.Err
}

// CommandLines returns the rendered command lines of all recorded calls.
func (f *FakeRunner) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.String()
	}
	return lines
}
