package diag

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Severity colors follow the semantic palette used across the CLI.
var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	posStyle     = lipgloss.NewStyle().Bold(true)
	codeStyle    = lipgloss.NewStyle().Faint(true)
)

// Printer writes diagnostics to a stream as they are reported.
// With Color set, severity and position are styled for terminals.
type Printer struct {
	Out   io.Writer
	Color bool
}

func NewPrinter(out io.Writer, color bool) *Printer {
	return &Printer{Out: out, Color: color}
}

func (p *Printer) Report(d Diagnostic) {
	if !p.Color {
		fmt.Fprintln(p.Out, d.String())
		return
	}

	sev := errorStyle.Render(d.Severity.String())
	if d.Severity == SeverityWarning {
		sev = warningStyle.Render(d.Severity.String())
	}
	fmt.Fprintf(p.Out, "%s: %s: %s %s\n",
		posStyle.Render(d.Pos.String()),
		sev,
		d.Message,
		codeStyle.Render("["+d.Code+"]"),
	)
}

// jsonDiagnostic is the CI-facing wire form of a Diagnostic.
type jsonDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Ref      string `json:"ref,omitempty"`
}

// WriteJSON renders diagnostics as a JSON array for pipeline consumption.
func WriteJSON(out io.Writer, diags []Diagnostic) error {
	wire := make([]jsonDiagnostic, 0, len(diags))
	for _, d := range diags {
		wire = append(wire, jsonDiagnostic{
			File:     d.Pos.Filename,
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
			Severity: d.Severity.String(),
			Code:     d.Code,
			Message:  d.Message,
			Ref:      d.Ref,
		})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(wire)
}
