// Package buildsignal writes directives for the build system that invokes
// modgen. Directives are single lines on stdout of the form
// "cargo:<key>=<value>".
package buildsignal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// DefaultPrefix is the directive prefix understood by cargo build scripts
const DefaultPrefix = "cargo:"

// Signaler writes build system directives. It is safe for concurrent use.
type Signaler struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
}

// New creates a Signaler writing to out, stdout when out is nil
func New(out io.Writer) *Signaler {
	if out == nil {
		out = os.Stdout
	}
	return &Signaler{out: out, prefix: DefaultPrefix}
}

// Discard returns a Signaler that writes nothing
func Discard() *Signaler {
	return New(io.Discard)
}

// RerunIfChanged asks the build system to run the generator again when path
// changes. For a directory, any change below it counts.
func (s *Signaler) RerunIfChanged(path string) error {
	return s.directive("rerun-if-changed", path)
}

// RerunIfEnvChanged asks the build system to run the generator again when
// the environment variable changes
func (s *Signaler) RerunIfEnvChanged(name string) error {
	return s.directive("rerun-if-env-changed", name)
}

// Warning shows msg to the user building the host program
func (s *Signaler) Warning(msg string) error {
	return s.directive("warning", msg)
}

// Warningf formats and shows a warning
func (s *Signaler) Warningf(format string, args ...interface{}) error {
	return s.Warning(fmt.Sprintf(format, args...))
}

// directive writes one directive. Newlines would start a new directive, so
// they are replaced by spaces.
func (s *Signaler) directive(key, value string) error {
	value = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.out, "%s%s=%s\n", s.prefix, key, value); err != nil {
		return fmt.Errorf("failed to write build directive: %w", err)
	}
	return nil
}
