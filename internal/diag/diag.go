// Package diag is the messaging facility of the checker: diagnostics are
// attached to source positions and flow through a Reporter, mirroring the
// way an annotation processor reports through its host compiler.
package diag

import (
	"fmt"
	"go/token"
	"sync"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic codes emitted by the checker.
const (
	CodeBadDirective  = "bad-directive"
	CodeParseFailure  = "parse-failure"
	CodeMissingMethod = "missing-method"
	CodeShadowedFunc  = "shadowed-func"
	CodeNotExported   = "not-exported"
	CodeParamCount    = "param-count"
	CodeParamType     = "param-type"
	CodeReturnCount   = "return-count"
	CodeReturnType    = "return-type"
	CodeFailsCount    = "fails-count"
	CodeFailsType     = "fails-type"
)

// Diagnostic is a single finding attached to a source element.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Pos      token.Position `json:"-"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	// Ref is the element reference the finding is attached to,
	// e.g. "struct:config.Config" or "fn:config.Config.Load".
	Ref string `json:"ref,omitempty"`
}

// String renders the diagnostic in compiler style:
// file:line:col: error: message [code]
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Pos, d.Severity, d.Message, d.Code)
}

// Errorf builds an error diagnostic.
func Errorf(pos token.Position, code, ref, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Pos:      pos,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Ref:      ref,
	}
}

// Reporter receives diagnostics as they are produced.
type Reporter interface {
	Report(d Diagnostic)
}

// Collector accumulates diagnostics in order. Safe for concurrent use; the
// scanner reports from per-root goroutines.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// ErrorCount returns the number of error-severity diagnostics.
func (c *Collector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Tee fans a diagnostic out to several reporters.
type Tee []Reporter

func (t Tee) Report(d Diagnostic) {
	for _, r := range t {
		r.Report(d)
	}
}
