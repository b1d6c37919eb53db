package directive

import (
	"go/token"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatch(t *testing.T) {
	testCases := []struct {
		comment string
		payload string
		ok      bool
	}{
		{"//methodreq:require name=Load", "name=Load", true},
		{"//methodreq:require", "", true},
		{"//methodreq:required name=Load", "", false},
		{"// methodreq:require name=Load", "", false}, // directives have no space after //
		{"//go:generate stringer", "", false},
	}

	for _, tc := range testCases {
		payload, ok := Match("methodreq", tc.comment)
		if ok != tc.ok {
			t.Errorf("Match(%q) ok = %v, want %v", tc.comment, ok, tc.ok)
		}
		if payload != tc.payload {
			t.Errorf("Match(%q) payload = %q, want %q", tc.comment, payload, tc.payload)
		}
	}
}

func TestMatch_CustomMarker(t *testing.T) {
	if _, ok := Match("contract", "//contract:require name=Run"); !ok {
		t.Error("custom marker not matched")
	}
	if _, ok := Match("contract", "//methodreq:require name=Run"); ok {
		t.Error("default marker matched under custom marker")
	}
}

func TestParse_Full(t *testing.T) {
	pos := token.Position{Filename: "x.go", Line: 3, Column: 1}
	req, err := Parse("name=Load kind=method params=(string, int) returns=(*Config) fails=(error)", pos)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := Requirement{
		Name:    "Load",
		Kind:    KindMethod,
		Params:  []string{"string", "int"},
		Returns: []string{"*Config"},
		Fails:   []string{"error"},
		Pos:     pos,
		Raw:     req.Raw,
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("Requirement mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Defaults(t *testing.T) {
	req, err := Parse("name=Reset", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if req.Kind != KindMethod {
		t.Errorf("default kind = %q, want method", req.Kind)
	}
	if len(req.Params) != 0 || len(req.Returns) != 0 || len(req.Fails) != 0 {
		t.Errorf("expected empty type lists, got %+v", req)
	}
}

func TestParse_EmptyLists(t *testing.T) {
	req, err := Parse("name=Close params=() returns=() fails=(error)", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(req.Params) != 0 {
		t.Errorf("params = %v, want empty", req.Params)
	}
	if diff := cmp.Diff([]string{"error"}, req.Fails); diff != "" {
		t.Errorf("fails mismatch:\n%s", diff)
	}
}

func TestParse_NestedTypes(t *testing.T) {
	req, err := Parse("name=Apply params=(map[string]int, func(int) error, []*Config)", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"map[string]int", "func(int) error", "[]*Config"}
	if diff := cmp.Diff(want, req.Params); diff != "" {
		t.Errorf("params mismatch:\n%s", diff)
	}
}

func TestParse_QualifiedAndSpacing(t *testing.T) {
	// Spacing differences must normalize away in the canonical rendering.
	a, err := Parse("name=Read params=(io.Reader,[]byte)", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	b, err := Parse("name=Read params=( io.Reader , []byte )", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if diff := cmp.Diff(a.Params, b.Params); diff != "" {
		t.Errorf("canonical rendering differs:\n%s", diff)
	}
}

func TestParse_Variadic(t *testing.T) {
	req, err := Parse("name=Printf params=(string, ...interface{})", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !req.Variadic {
		t.Error("Variadic not set")
	}
	if req.Params[1] != "...interface{}" {
		t.Errorf("variadic param = %q", req.Params[1])
	}
}

func TestParse_KindFunc(t *testing.T) {
	req, err := Parse("name=NewParser kind=func returns=(*Parser) fails=(error)", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if req.Kind != KindFunc {
		t.Errorf("kind = %q, want func", req.Kind)
	}
}

func TestParse_UnicodeName(t *testing.T) {
	req, err := Parse("name=Überprüfe params=(string)", token.Position{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if req.Name != "Überprüfe" {
		t.Errorf("Name = %q", req.Name)
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		wantMsg string
	}{
		{"missing name", "params=(string)", "missing name clause"},
		{"bad name", "name=not-an-ident", "not a valid identifier"},
		{"keyword name", "name=func", "not a valid identifier"},
		{"bad kind", "name=Run kind=static", "kind must be method or func"},
		{"unknown clause", "name=Run throws=(error)", "unknown clause"},
		{"duplicate clause", "name=Run name=Walk", "duplicate clause"},
		{"unbalanced", "name=Run params=(map[string]int", "unbalanced"},
		{"bad type", "name=Run params=(not a type!)", "invalid type list"},
		{"named elements", "name=Run params=(x int)", "must not name"},
		{"variadic returns", "name=Run returns=(...string)", "variadic type not allowed"},
		{"no key", "name=Run (string)", "expected key=value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.payload, token.Position{Filename: "x.go", Line: 1})
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tc.payload)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestParseError_Position(t *testing.T) {
	pos := token.Position{Filename: "pkg/a.go", Line: 12, Column: 1}
	_, err := Parse("params=(string)", pos)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "pkg/a.go:12") {
		t.Errorf("error not anchored at directive position: %q", err.Error())
	}
}

func TestSignature(t *testing.T) {
	testCases := []struct {
		req  Requirement
		want string
	}{
		{Requirement{Name: "Reset"}, "Reset()"},
		{Requirement{Name: "Name", Returns: []string{"string"}}, "Name() string"},
		{
			Requirement{Name: "Load", Params: []string{"string"}, Returns: []string{"*Config"}, Fails: []string{"error"}},
			"Load(string) (*Config, error)",
		},
	}

	for _, tc := range testCases {
		if got := tc.req.Signature(); got != tc.want {
			t.Errorf("Signature() = %q, want %q", got, tc.want)
		}
	}
}
