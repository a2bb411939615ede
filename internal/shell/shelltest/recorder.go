// Package shelltest provides a shell.Runner test double.
package shelltest

import (
	"context"
	"strings"
	"sync"

	"github.com/codemasonhq/ahoy/internal/shell"
)

// Response is the canned result for a command.
type Response struct {
	Output string
	Err    error
}

// Recorder is a shell.Runner that records every command and answers from a
// table of responses keyed by command-line prefix. Unmatched commands
// succeed with empty output.
type Recorder struct {
	mu        sync.Mutex
	commands  []shell.Command
	responses []prefixed
}

type prefixed struct {
	prefix string
	resp   Response
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// On registers resp for every command whose String() starts with prefix.
// Later registrations take precedence over earlier ones.
func (r *Recorder) On(prefix string, resp Response) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, prefixed{prefix: prefix, resp: resp})
	return r
}

// Run records cmd and returns the matching response.
func (r *Recorder) Run(_ context.Context, cmd shell.Command) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands = append(r.commands, cmd)

	line := cmd.String()
	for i := len(r.responses) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, r.responses[i].prefix) {
			return r.responses[i].resp.Output, r.responses[i].resp.Err
		}
	}
	return "", nil
}

// Commands returns the recorded commands in execution order.
func (r *Recorder) Commands() []shell.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shell.Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Lines returns the recorded commands rendered with Command.String.
func (r *Recorder) Lines() []string {
	cmds := r.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

// Reset forgets the recorded commands but keeps the responses.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}

var _ shell.Runner = (*Recorder)(nil)
