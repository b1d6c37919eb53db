package scan

import (
	"fmt"
	"go/token"

	"methodreq/internal/directive"
)

// TypeKind classifies an annotated type declaration.
type TypeKind string

const (
	TypeStruct    TypeKind = "struct"
	TypeInterface TypeKind = "interface"
	TypeOther     TypeKind = "type"
)

// TypeDecl is a type declaration together with any require directives
// attached to it.
type TypeDecl struct {
	Name         string
	Kind         TypeKind
	Package      string
	File         string
	Pos          token.Position
	Ref          string
	Requirements []directive.Requirement
}

// FuncDecl is the reflective view of a function or method the checker
// compares against. Type strings are canonical (printed from the AST).
type FuncDecl struct {
	Name        string
	Package     string
	Recv        string // base receiver type name, empty for package functions
	RecvPointer bool
	Exported    bool
	Params      []string
	Results     []string
	Variadic    bool
	FromIface   bool // declared inside an interface body
	File        string
	Pos         token.Position
	Ref         string
}

// Package groups the declarations of one package directory.
type Package struct {
	Name string
	Dir  string

	Files []string
	Types []TypeDecl
	Funcs []FuncDecl

	// Requirements attached to the package clause doc comment. These are
	// always resolved against package-level functions.
	Requirements []directive.Requirement
}

// Method returns the first method of the named receiver type matching name,
// in file order. Interface-body methods count.
func (p *Package) Method(recv, name string) (FuncDecl, bool) {
	for _, f := range p.Funcs {
		if f.Recv == recv && f.Name == name {
			return f, true
		}
	}
	return FuncDecl{}, false
}

// Func returns the first package-level function matching name.
func (p *Package) Func(name string) (FuncDecl, bool) {
	for _, f := range p.Funcs {
		if f.Recv == "" && f.Name == name {
			return f, true
		}
	}
	return FuncDecl{}, false
}

func buildRef(prefix, pkgName, name, parent string) string {
	if parent != "" {
		return fmt.Sprintf("%s:%s.%s.%s", prefix, pkgName, parent, name)
	}
	return fmt.Sprintf("%s:%s.%s", prefix, pkgName, name)
}
