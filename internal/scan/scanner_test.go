package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"methodreq/internal/diag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func scanDir(t *testing.T, dir string) ([]*Package, *diag.Collector) {
	t.Helper()
	collector := diag.NewCollector()
	pkgs, err := New(Options{}).Scan(context.Background(), []string{dir}, collector)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return pkgs, collector
}

func TestScan_AnnotatedType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.go", `package config

//methodreq:require name=Load params=(string) returns=(*Config) fails=(error)
type Config struct{}

func (c *Config) Load(path string) (*Config, error) { return c, nil }
`)

	pkgs, collector := scanDir(t, dir)
	if len(collector.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", collector.Diagnostics())
	}
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages, want 1", len(pkgs))
	}
	pkg := pkgs[0]

	if len(pkg.Types) != 1 {
		t.Fatalf("got %d types, want 1", len(pkg.Types))
	}
	typ := pkg.Types[0]
	if typ.Name != "Config" || typ.Kind != TypeStruct {
		t.Errorf("type = %s/%s, want Config/struct", typ.Name, typ.Kind)
	}
	if typ.Ref != "struct:config.Config" {
		t.Errorf("ref = %q", typ.Ref)
	}
	if len(typ.Requirements) != 1 {
		t.Fatalf("got %d requirements, want 1", len(typ.Requirements))
	}
	if typ.Requirements[0].Name != "Load" {
		t.Errorf("requirement name = %q", typ.Requirements[0].Name)
	}

	fn, ok := pkg.Method("Config", "Load")
	if !ok {
		t.Fatal("method Config.Load not found")
	}
	if !fn.RecvPointer {
		t.Error("RecvPointer = false, want true")
	}
	if len(fn.Params) != 1 || fn.Params[0] != "string" {
		t.Errorf("params = %v", fn.Params)
	}
	if len(fn.Results) != 2 || fn.Results[0] != "*Config" || fn.Results[1] != "error" {
		t.Errorf("results = %v", fn.Results)
	}
}

func TestScan_MultiNameFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.go", `package m

type T struct{}

func (T) Add(a, b int) int { return a + b }
`)

	pkgs, _ := scanDir(t, dir)
	fn, ok := pkgs[0].Method("T", "Add")
	if !ok {
		t.Fatal("method not found")
	}
	// (a, b int) expands to one entry per name.
	if len(fn.Params) != 2 || fn.Params[0] != "int" || fn.Params[1] != "int" {
		t.Errorf("params = %v, want [int int]", fn.Params)
	}
}

func TestScan_InterfaceMethods(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "iface.go", `package m

//methodreq:require name=Validate returns=() fails=(error)
type Validator interface {
	Validate() error
}
`)

	pkgs, collector := scanDir(t, dir)
	if len(collector.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", collector.Diagnostics())
	}
	pkg := pkgs[0]
	if pkg.Types[0].Kind != TypeInterface {
		t.Errorf("kind = %q, want interface", pkg.Types[0].Kind)
	}
	fn, ok := pkg.Method("Validator", "Validate")
	if !ok {
		t.Fatal("interface method not lifted")
	}
	if !fn.FromIface {
		t.Error("FromIface = false")
	}
	if len(fn.Results) != 1 || fn.Results[0] != "error" {
		t.Errorf("results = %v", fn.Results)
	}
}

func TestScan_GroupedTypeDecl(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "g.go", `package m

type (
	//methodreq:require name=Reset
	Counter struct{}

	Plain struct{}
)
`)

	pkgs, _ := scanDir(t, dir)
	pkg := pkgs[0]
	if len(pkg.Types) != 2 {
		t.Fatalf("got %d types, want 2", len(pkg.Types))
	}
	var counter *TypeDecl
	for i := range pkg.Types {
		if pkg.Types[i].Name == "Counter" {
			counter = &pkg.Types[i]
		}
	}
	if counter == nil {
		t.Fatal("Counter not found")
	}
	if len(counter.Requirements) != 1 {
		t.Errorf("Counter requirements = %d, want 1", len(counter.Requirements))
	}
}

func TestScan_PackageDirective(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.go", `//methodreq:require name=New returns=(*Registry)
package m

type Registry struct{}

func New() *Registry { return &Registry{} }
`)

	pkgs, collector := scanDir(t, dir)
	if len(collector.Diagnostics()) != 0 {
		t.Fatalf("unexpected diagnostics: %v", collector.Diagnostics())
	}
	pkg := pkgs[0]
	if len(pkg.Requirements) != 1 {
		t.Fatalf("package requirements = %d, want 1", len(pkg.Requirements))
	}
	// Package clause directives always resolve against package functions.
	if pkg.Requirements[0].Kind != "func" {
		t.Errorf("kind = %q, want func", pkg.Requirements[0].Kind)
	}
}

func TestScan_BadDirectiveIsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", `package m

//methodreq:require params=(string)
type T struct{}
`)

	pkgs, collector := scanDir(t, dir)
	diags := collector.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].Code != diag.CodeBadDirective {
		t.Errorf("code = %q, want %q", diags[0].Code, diag.CodeBadDirective)
	}
	// The bad directive is dropped, the type survives.
	if len(pkgs[0].Types[0].Requirements) != 0 {
		t.Error("bad directive attached to type")
	}
}

func TestScan_ParseFailureIsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.go", "package m\n\nfunc (")
	writeFile(t, dir, "fine.go", "package m\n\ntype T struct{}\n")

	pkgs, collector := scanDir(t, dir)
	diags := collector.Diagnostics()
	if len(diags) != 1 || diags[0].Code != diag.CodeParseFailure {
		t.Fatalf("diagnostics = %v", diags)
	}
	// The healthy file still contributes its model.
	if len(pkgs) != 1 || len(pkgs[0].Types) != 1 {
		t.Errorf("healthy file not scanned: %+v", pkgs)
	}
}

func TestScan_SkipsTestFilesAndVendor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package m\n\ntype A struct{}\n")
	writeFile(t, dir, "a_test.go", "package m\n\ntype FromTest struct{}\n")
	writeFile(t, dir, filepath.Join("vendor", "dep", "dep.go"), "package dep\n\ntype Dep struct{}\n")
	writeFile(t, dir, filepath.Join("_skip", "s.go"), "package s\n\ntype S struct{}\n")

	pkgs, _ := scanDir(t, dir)
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages, want 1", len(pkgs))
	}
	for _, typ := range pkgs[0].Types {
		if typ.Name != "A" {
			t.Errorf("unexpected type %q scanned", typ.Name)
		}
	}
}

func TestScan_IncludeTests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package m\n\ntype A struct{}\n")
	writeFile(t, dir, "a_test.go", "package m\n\ntype FromTest struct{}\n")

	collector := diag.NewCollector()
	pkgs, err := New(Options{IncludeTests: true}).Scan(context.Background(), []string{dir}, collector)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(pkgs[0].Types) != 2 {
		t.Errorf("got %d types, want 2", len(pkgs[0].Types))
	}
}

func TestScan_SingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "one.go", "package m\n\ntype One struct{}\n")

	collector := diag.NewCollector()
	pkgs, err := New(Options{}).Scan(context.Background(), []string{path}, collector)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(pkgs) != 1 || len(pkgs[0].Types) != 1 {
		t.Fatalf("single file root not scanned: %+v", pkgs)
	}
}

func TestScan_CustomMarker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.go", `package m

//contract:require name=Run
type Job struct{}
`)

	collector := diag.NewCollector()
	pkgs, err := New(Options{Marker: "contract"}).Scan(context.Background(), []string{dir}, collector)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(pkgs[0].Types[0].Requirements) != 1 {
		t.Error("custom marker directive not attached")
	}
}
