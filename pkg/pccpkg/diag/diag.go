// Package diag collects the warnings and errors produced while assembling a
// package. A Sink is passed explicitly into each component; nothing is kept
// in global state.
package diag

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
)

// Severity classifies a message.
type Severity int

// Severities.
const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Context names where a message came from.
type Context struct {
	// File is the manifest file; only its base name is shown.
	File string

	// Source is the extension name, or the installation folder when the
	// extension is not known yet.
	Source string
}

// Message is one recorded diagnostic.
type Message struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Text     string   `json:"text" yaml:"text"`
	File     string   `json:"file,omitempty" yaml:"file,omitempty"`
	Source   string   `json:"source,omitempty" yaml:"source,omitempty"`
}

// String renders the message with its manifest context, for example:
//
//	In XML package manifest file pccevents.xml (com_pccevents): media section is empty
func (m Message) String() string {
	if m.File == "" && m.Source == "" {
		return m.Text
	}
	var b strings.Builder
	b.WriteString("In XML package manifest")
	if m.File != "" {
		b.WriteString(" file ")
		b.WriteString(filepath.Base(m.File))
	}
	if m.Source != "" {
		fmt.Fprintf(&b, " (%s)", m.Source)
	}
	b.WriteString(": ")
	b.WriteString(m.Text)
	return b.String()
}

// Sink accumulates messages. It is safe for concurrent use.
type Sink struct {
	mu       sync.Mutex
	messages []Message
	logger   *logging.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger mirrors every recorded message to logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Sink) {
		s.logger = l
	}
}

// NewSink creates an empty sink.
func NewSink(opts ...Option) *Sink {
	s := &Sink{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add records a message.
func (s *Sink) Add(m Message) {
	s.mu.Lock()
	s.messages = append(s.messages, m)
	logger := s.logger
	s.mu.Unlock()

	if logger == nil {
		return
	}
	if m.Severity == Error {
		logger.Error(m.String())
	} else {
		logger.Warn(m.String())
	}
}

// Warnf records a warning with context.
func (s *Sink) Warnf(ctx Context, format string, args ...any) {
	s.Add(Message{Severity: Warning, Text: fmt.Sprintf(format, args...), File: ctx.File, Source: ctx.Source})
}

// Errorf records an error with context.
func (s *Sink) Errorf(ctx Context, format string, args ...any) {
	s.Add(Message{Severity: Error, Text: fmt.Sprintf(format, args...), File: ctx.File, Source: ctx.Source})
}

// Messages returns a copy of all messages in recording order.
func (s *Sink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Errors returns only the error messages.
func (s *Sink) Errors() []Message {
	return s.filter(Error)
}

// Warnings returns only the warning messages.
func (s *Sink) Warnings() []Message {
	return s.filter(Warning)
}

func (s *Sink) filter(sev Severity) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	return out
}

// HasErrors reports whether any error was recorded.
func (s *Sink) HasErrors() bool {
	return len(s.Errors()) > 0
}

// Len returns the number of messages.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Merge appends every message of other. Messages other already mirrored to
// its own logger are not logged again.
func (s *Sink) Merge(other *Sink) {
	s.merge(other, func(m Message) Message { return m })
}

// MergeAs appends every message of other with its severity replaced.
func (s *Sink) MergeAs(other *Sink, sev Severity) {
	s.merge(other, func(m Message) Message {
		m.Severity = sev
		return m
	})
}

func (s *Sink) merge(other *Sink, conv func(Message) Message) {
	other.mu.Lock()
	logged := other.logger != nil
	other.mu.Unlock()

	for _, m := range other.Messages() {
		m = conv(m)
		if !logged {
			s.Add(m)
			continue
		}
		s.mu.Lock()
		s.messages = append(s.messages, m)
		s.mu.Unlock()
	}
}

// Reset drops all messages.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Strings renders every message.
func (s *Sink) Strings() []string {
	msgs := s.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.String()
	}
	return out
}
