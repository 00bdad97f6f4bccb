package runner

import (
	"sync"

	"github.com/roach88/steprun/internal/outcome"
)

// Attachment is a blob an Action attached to the scenario.
type Attachment struct {
	Name      string
	MediaType string
	Data      []byte
}

// Scenario is the per-run context passed to every Action of a Case.
//
// It is created when the Case starts and is not reused across runs.
// Actions read identity from it and append output lines and attachments.
// Hooks can query the status of the steps run so far.
//
// Thread-safety: all methods are safe for concurrent use, so an Action may
// write from goroutines it starts.
type Scenario struct {
	id   string
	name string
	tags []string

	mu          sync.Mutex
	lines       []string
	attachments []Attachment
	results     outcome.Aggregate
}

// NewScenario creates an empty scenario context.
func NewScenario(id, name string, tags []string) *Scenario {
	return &Scenario{
		id:   id,
		name: name,
		tags: append([]string(nil), tags...),
	}
}

// ID returns the case identifier.
func (s *Scenario) ID() string { return s.id }

// Name returns the scenario name.
func (s *Scenario) Name() string { return s.name }

// Tags returns a copy of the scenario tags.
func (s *Scenario) Tags() []string {
	return append([]string(nil), s.tags...)
}

// HasTag reports whether the scenario carries tag.
func (s *Scenario) HasTag(tag string) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Write appends one output line.
func (s *Scenario) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

// Lines returns a copy of the output lines written so far.
func (s *Scenario) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Attach records a blob. The data is copied.
func (s *Scenario) Attach(name, mediaType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, Attachment{
		Name:      name,
		MediaType: mediaType,
		Data:      append([]byte(nil), data...),
	})
}

// Attachments returns the attachments recorded so far.
func (s *Scenario) Attachments() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attachment(nil), s.attachments...)
}

// Status returns the most severe status of the steps run so far.
// Passed before any step has run.
func (s *Scenario) Status() outcome.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results.Status()
}

// IsFailed reports whether any step so far failed.
func (s *Scenario) IsFailed() bool {
	return s.Status() == outcome.StatusFailed
}

// add records a step outcome. Called by the Case after each step.
func (s *Scenario) add(o outcome.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results.Add(o)
}
