// Package directive parses //methodreq:require marker comments into
// structured method requirements. The type lists inside a directive are
// validated by the real Go parser: the clause text is wrapped into a
// synthetic function signature and parsed, so anything the compiler would
// reject is rejected here with the compiler's own error message.
package directive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
)

// DefaultMarker is the directive marker recognized when no override is
// configured. The full directive prefix is "//<marker>:require".
const DefaultMarker = "methodreq"

// Kind selects what the requirement resolves against.
type Kind string

const (
	// KindMethod requires a method on the annotated type.
	KindMethod Kind = "method"
	// KindFunc requires an exported package-level function. This is the Go
	// reading of a required static method.
	KindFunc Kind = "func"
)

// Requirement is one parsed //methodreq:require directive.
// All type strings are in canonical rendered form (printed back from the
// parsed AST), so surface differences in spacing never cause a mismatch.
type Requirement struct {
	Name     string
	Kind     Kind
	Params   []string
	Returns  []string
	Fails    []string
	Variadic bool // last param is ...T

	Pos token.Position
	Raw string
}

// Signature renders the requirement as a readable Go signature for
// diagnostic messages, e.g. "Load(string) (*Config, error)".
func (r Requirement) Signature() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString("(")
	b.WriteString(strings.Join(r.Params, ", "))
	b.WriteString(")")

	results := append(append([]string{}, r.Returns...), r.Fails...)
	switch len(results) {
	case 0:
	case 1:
		b.WriteString(" ")
		b.WriteString(results[0])
	default:
		b.WriteString(" (")
		b.WriteString(strings.Join(results, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Match reports whether the comment line carries a require directive for the
// given marker, and returns the payload after the prefix.
func Match(marker, comment string) (string, bool) {
	text := strings.TrimPrefix(comment, "//")
	prefix := marker + ":require"
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	rest := text[len(prefix):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false // e.g. methodreq:requires
	}
	return strings.TrimSpace(rest), true
}

// Parse parses the payload of a require directive (the text after
// "//<marker>:require") into a Requirement. pos is the position of the
// directive comment and is carried into the Requirement and into errors.
func Parse(payload string, pos token.Position) (Requirement, error) {
	req := Requirement{Kind: KindMethod, Pos: pos, Raw: payload}

	clauses, err := splitClauses(payload)
	if err != nil {
		return req, &ParseError{Pos: pos, Msg: err.Error()}
	}

	seen := make(map[string]bool)
	for _, c := range clauses {
		if seen[c.key] {
			return req, &ParseError{Pos: pos, Msg: fmt.Sprintf("duplicate clause %q", c.key)}
		}
		seen[c.key] = true

		switch c.key {
		case "name":
			if !token.IsIdentifier(c.value) {
				return req, &ParseError{Pos: pos, Msg: fmt.Sprintf("name %q is not a valid identifier", c.value)}
			}
			req.Name = c.value

		case "kind":
			switch Kind(c.value) {
			case KindMethod, KindFunc:
				req.Kind = Kind(c.value)
			default:
				return req, &ParseError{Pos: pos, Msg: fmt.Sprintf("kind must be method or func, got %q", c.value)}
			}

		case "params":
			typs, variadic, err := parseTypeList(c.value, true)
			if err != nil {
				return req, &ParseError{Pos: pos, Msg: fmt.Sprintf("params: %v", err)}
			}
			req.Params = typs
			req.Variadic = variadic

		case "returns":
			typs, _, err := parseTypeList(c.value, false)
			if err != nil {
				return req, &ParseError{Pos: pos, Msg: fmt.Sprintf("returns: %v", err)}
			}
			req.Returns = typs

		case "fails":
			typs, _, err := parseTypeList(c.value, false)
			if err != nil {
				return req, &ParseError{Pos: pos, Msg: fmt.Sprintf("fails: %v", err)}
			}
			req.Fails = typs

		default:
			return req, &ParseError{Pos: pos, Msg: fmt.Sprintf("unknown clause %q", c.key)}
		}
	}

	if req.Name == "" {
		return req, &ParseError{Pos: pos, Msg: "missing name clause"}
	}
	return req, nil
}

// ParseError is a malformed directive. It renders with the directive position
// so the error reads like a compiler diagnostic.
type ParseError struct {
	Pos token.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: invalid require directive: %s", e.Pos, e.Msg)
}

type clause struct {
	key   string
	value string
}

// splitClauses splits "name=Load params=(string, int) ..." into key/value
// pairs. Parenthesized values may contain nested brackets and commas
// (map[string]int, func(int) error), so the close paren is matched with a
// depth counter over (), [] and {}.
func splitClauses(payload string) ([]clause, error) {
	var out []clause
	i := 0
	n := len(payload)

	for i < n {
		// Skip whitespace between clauses.
		for i < n && (payload[i] == ' ' || payload[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}

		eq := strings.IndexByte(payload[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("expected key=value, got %q", payload[i:])
		}
		key := strings.TrimSpace(payload[i : i+eq])
		if key == "" {
			return nil, fmt.Errorf("empty clause key near %q", payload[i:])
		}
		i += eq + 1

		if i < n && payload[i] == '(' {
			depth := 0
			start := i
			for ; i < n; i++ {
				switch payload[i] {
				case '(', '[', '{':
					depth++
				case ')', ']', '}':
					depth--
				}
				if depth == 0 {
					break
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %s clause", key)
			}
			i++ // past the closing paren
			out = append(out, clause{key: key, value: payload[start:i]})
			continue
		}

		// Bare value: read until whitespace.
		start := i
		for i < n && payload[i] != ' ' && payload[i] != '\t' {
			i++
		}
		out = append(out, clause{key: key, value: payload[start:i]})
	}

	return out, nil
}

// parseTypeList parses "(string, map[string]int)" into canonical type
// strings. allowVariadic permits a trailing ...T (params only).
func parseTypeList(value string, allowVariadic bool) ([]string, bool, error) {
	if !strings.HasPrefix(value, "(") || !strings.HasSuffix(value, ")") {
		return nil, false, fmt.Errorf("expected a parenthesized type list, got %q", value)
	}
	inner := strings.TrimSpace(value[1 : len(value)-1])
	if inner == "" {
		return nil, false, nil
	}

	// Let the real parser judge the list by wrapping it in a signature.
	src := "package p\nfunc _(" + inner + ")"
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "directive.go", src, 0)
	if err != nil {
		return nil, false, fmt.Errorf("invalid type list %q: %v", inner, err)
	}

	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok || fn.Type.Params == nil {
		return nil, false, fmt.Errorf("invalid type list %q", inner)
	}

	var typs []string
	variadic := false
	for i, field := range fn.Type.Params.List {
		if len(field.Names) > 0 {
			return nil, false, fmt.Errorf("type list must not name its elements: %q", inner)
		}
		if ell, ok := field.Type.(*ast.Ellipsis); ok {
			if !allowVariadic {
				return nil, false, fmt.Errorf("variadic type not allowed here: %q", inner)
			}
			if i != len(fn.Type.Params.List)-1 {
				return nil, false, fmt.Errorf("variadic type must be last: %q", inner)
			}
			variadic = true
			typs = append(typs, "..."+types.ExprString(ell.Elt))
			continue
		}
		typs = append(typs, types.ExprString(field.Type))
	}
	return typs, variadic, nil
}
