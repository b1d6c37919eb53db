// Package check runs validation rounds: every require directive found by the
// scanner is resolved against the declared methods and functions of its
// package, and the first mismatch per requirement is reported as an
// error-severity diagnostic attached to the offending element.
package check

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"methodreq/internal/diag"
	"methodreq/internal/directive"
	"methodreq/internal/logging"
	"methodreq/internal/scan"
)

// Round is the record of one validation pass.
type Round struct {
	ID       string
	Started  time.Time
	Duration time.Duration

	Packages     int
	Types        int
	Requirements int

	Diagnostics []diag.Diagnostic
}

// Failed reports whether the round produced any error diagnostics.
func (r Round) Failed() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityError {
			return true
		}
	}
	return false
}

// Checker validates requirements against scanned packages.
type Checker struct {
	// FailFast stops the round at the first mismatch, matching the host
	// compiler round semantics. When false, every requirement is validated,
	// each still short-circuiting at its own first mismatch.
	FailFast bool
	// Reporter receives diagnostics as they are found. Optional.
	Reporter diag.Reporter
}

// Run executes one validation round over the given packages.
func (c *Checker) Run(ctx context.Context, pkgs []*scan.Package) Round {
	round := Round{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}
	timer := logging.StartTimer(logging.CategoryCheck, "round "+round.ID)
	defer func() { round.Duration = timer.Stop() }()

	logging.Check("round %s: %d packages", round.ID, len(pkgs))

	for _, pkg := range pkgs {
		if ctx.Err() != nil {
			break
		}
		round.Packages++

		for _, req := range pkg.Requirements {
			round.Requirements++
			if d := c.checkFunc(pkg, nil, req); d != nil {
				c.report(&round, *d)
				if c.FailFast {
					return round
				}
			}
		}

		for i := range pkg.Types {
			t := &pkg.Types[i]
			round.Types++
			for _, req := range t.Requirements {
				round.Requirements++

				var d *diag.Diagnostic
				if req.Kind == directive.KindFunc {
					d = c.checkFunc(pkg, t, req)
				} else {
					d = c.checkMethod(pkg, t, req)
				}
				if d != nil {
					c.report(&round, *d)
					if c.FailFast {
						return round
					}
				}
			}
		}
	}

	logging.Check("round %s: %d requirements, %d diagnostics",
		round.ID, round.Requirements, len(round.Diagnostics))
	return round
}

func (c *Checker) report(round *Round, d diag.Diagnostic) {
	round.Diagnostics = append(round.Diagnostics, d)
	if c.Reporter != nil {
		c.Reporter.Report(d)
	}
	logging.CheckDebug("diagnostic: %s", d.String())
}

// checkMethod validates a kind=method requirement against the annotated
// type's method set. It returns the first mismatch, or nil.
func (c *Checker) checkMethod(pkg *scan.Package, t *scan.TypeDecl, req directive.Requirement) *diag.Diagnostic {
	fn, ok := pkg.Method(t.Name, req.Name)
	if !ok {
		d := diag.Errorf(t.Pos, diag.CodeMissingMethod, t.Ref,
			"the type '%s' requires a method named '%s'", t.Name, req.Name)
		return &d
	}
	return c.checkSignature(fn, req, "method")
}

// checkFunc validates a kind=func requirement against the package-level
// functions. The diagnostic anchors on the annotated type when there is one,
// otherwise on the package clause position of the requirement itself.
func (c *Checker) checkFunc(pkg *scan.Package, t *scan.TypeDecl, req directive.Requirement) *diag.Diagnostic {
	fn, ok := pkg.Func(req.Name)
	if !ok {
		pos, ref := req.Pos, ""
		subject := "the package '" + pkg.Name + "'"
		if t != nil {
			pos, ref = t.Pos, t.Ref
			subject = "the type '" + t.Name + "'"
		}
		d := diag.Errorf(pos, diag.CodeMissingMethod, ref,
			"%s requires a function named '%s'", subject, req.Name)
		return &d
	}

	// The package function is the unit checked, so a same-name method on the
	// annotated type would silently win any call through the type. Reject the
	// ambiguity.
	if t != nil {
		if m, ok := pkg.Method(t.Name, req.Name); ok {
			d := diag.Errorf(m.Pos, diag.CodeShadowedFunc, m.Ref,
				"the type '%s' declares a method '%s' shadowing the required function", t.Name, req.Name)
			return &d
		}
	}
	return c.checkSignature(fn, req, "function")
}

// checkSignature compares the found declaration against the requirement in
// round order: modifiers, value results, parameters, failure results. The
// first mismatch wins.
func (c *Checker) checkSignature(fn scan.FuncDecl, req directive.Requirement, noun string) *diag.Diagnostic {
	if !fn.Exported {
		d := diag.Errorf(fn.Pos, diag.CodeNotExported, fn.Ref,
			"the %s '%s' has to be exported", noun, fn.Name)
		return &d
	}

	if len(fn.Results) < len(req.Returns) {
		d := diag.Errorf(fn.Pos, diag.CodeReturnCount, fn.Ref,
			"the %s '%s' has to return '(%s)'", noun, fn.Name, typeList(req.Returns))
		return &d
	}
	for i := range req.Returns {
		if fn.Results[i] != req.Returns[i] {
			d := diag.Errorf(fn.Pos, diag.CodeReturnType, fn.Ref,
				"the %s '%s' has to return '(%s)'", noun, fn.Name, typeList(req.Returns))
			return &d
		}
	}

	if len(fn.Params) != len(req.Params) {
		d := diag.Errorf(fn.Pos, diag.CodeParamCount, fn.Ref,
			"the %s '%s' requires the parameters '(%s)'", noun, fn.Name, typeList(req.Params))
		return &d
	}
	for i := range req.Params {
		if fn.Params[i] != req.Params[i] {
			d := diag.Errorf(fn.Pos, diag.CodeParamType, fn.Ref,
				"the %s '%s' requires the parameters '(%s)'", noun, fn.Name, typeList(req.Params))
			return &d
		}
	}
	if fn.Variadic != req.Variadic {
		d := diag.Errorf(fn.Pos, diag.CodeParamType, fn.Ref,
			"the %s '%s' requires the parameters '(%s)'", noun, fn.Name, typeList(req.Params))
		return &d
	}

	// Declared results split into value results and failure results: the
	// first len(Returns) entries are returns, the remainder must be the
	// declared failure modes.
	fails := fn.Results[len(req.Returns):]
	if len(fails) != len(req.Fails) {
		d := diag.Errorf(fn.Pos, diag.CodeFailsCount, fn.Ref,
			"the %s '%s' has to be able to fail with '(%s)'", noun, fn.Name, typeList(req.Fails))
		return &d
	}
	for i := range req.Fails {
		if fails[i] != req.Fails[i] {
			d := diag.Errorf(fn.Pos, diag.CodeFailsType, fn.Ref,
				"the %s '%s' has to be able to fail with '(%s)'", noun, fn.Name, typeList(req.Fails))
			return &d
		}
	}

	return nil
}

func typeList(typs []string) string {
	return strings.Join(typs, ", ")
}
