// Package scan walks source roots and builds the reflective model the
// checker validates: annotated type declarations and the functions and
// methods that may satisfy them. Parsing is per-file with go/parser; a file
// that fails to parse becomes a diagnostic, not a fatal error.
package scan

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"methodreq/internal/diag"
	"methodreq/internal/directive"
	"methodreq/internal/logging"
)

// Options configures a Scanner.
type Options struct {
	// Marker is the directive marker, "methodreq" by default.
	Marker string
	// IncludeTests includes _test.go files in the scan.
	IncludeTests bool
	// Exclude lists directory names to skip in addition to the built-ins
	// (vendor, testdata, dot- and underscore-prefixed).
	Exclude []string
}

// Scanner parses Go sources under a set of roots.
type Scanner struct {
	opts    Options
	exclude map[string]bool
}

// New creates a Scanner. Zero-value options select the defaults.
func New(opts Options) *Scanner {
	if opts.Marker == "" {
		opts.Marker = directive.DefaultMarker
	}
	exclude := map[string]bool{
		"vendor":   true,
		"testdata": true,
	}
	for _, name := range opts.Exclude {
		exclude[name] = true
	}
	return &Scanner{opts: opts, exclude: exclude}
}

// Scan parses every Go file under the given roots and returns the package
// models, in deterministic directory order. Malformed files and malformed
// directives are reported through the reporter. Roots are scanned
// concurrently.
func (s *Scanner) Scan(ctx context.Context, roots []string, reporter diag.Reporter) ([]*Package, error) {
	timer := logging.StartTimer(logging.CategoryScan, "scan")
	defer timer.Stop()

	byDir := make(map[string]*Package)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, root := range roots {
		root := root
		g.Go(func() error {
			return s.scanRoot(ctx, root, reporter, func(pkg *Package) {
				mu.Lock()
				defer mu.Unlock()
				key := pkg.Dir + "\x00" + pkg.Name
				if existing, ok := byDir[key]; ok {
					existing.Files = append(existing.Files, pkg.Files...)
					existing.Types = append(existing.Types, pkg.Types...)
					existing.Funcs = append(existing.Funcs, pkg.Funcs...)
					existing.Requirements = append(existing.Requirements, pkg.Requirements...)
					return
				}
				byDir[key] = pkg
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pkgs := make([]*Package, 0, len(byDir))
	for _, pkg := range byDir {
		sort.Strings(pkg.Files)
		pkgs = append(pkgs, pkg)
	}
	sort.Slice(pkgs, func(i, j int) bool {
		if pkgs[i].Dir != pkgs[j].Dir {
			return pkgs[i].Dir < pkgs[j].Dir
		}
		return pkgs[i].Name < pkgs[j].Name
	})

	logging.Scan("scanned %d roots into %d packages", len(roots), len(pkgs))
	return pkgs, nil
}

// scanRoot walks one root. A root may also be a single .go file.
func (s *Scanner) scanRoot(ctx context.Context, root string, reporter diag.Reporter, emit func(*Package)) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		if strings.HasSuffix(root, ".go") {
			s.parseInto(root, reporter, emit)
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (s.exclude[name] || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if !s.opts.IncludeTests && strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") {
			return nil
		}
		s.parseInto(path, reporter, emit)
		return nil
	})
}

// parseInto parses one file and emits its package fragment.
func (s *Scanner) parseInto(path string, reporter diag.Reporter, emit func(*Package)) {
	start := time.Now()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		logging.Get(logging.CategoryScan).Error("parse failed: %s - %v", path, err)
		reporter.Report(diag.Errorf(
			token.Position{Filename: path, Line: 1, Column: 1},
			diag.CodeParseFailure, "",
			"cannot validate %s: %v", filepath.Base(path), err,
		))
		return
	}

	pkgName := file.Name.Name
	pkg := &Package{
		Name:  pkgName,
		Dir:   filepath.Dir(path),
		Files: []string{path},
	}

	// Package clause directives require package-level functions.
	if file.Doc != nil {
		pkg.Requirements = append(pkg.Requirements,
			s.parseDirectives(fset, file.Doc, reporter, directive.KindFunc)...)
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			pkg.Funcs = append(pkg.Funcs, s.parseFuncDecl(fset, d, path, pkgName))
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				td, funcs := s.parseTypeSpec(fset, d, typeSpec, path, pkgName, reporter)
				pkg.Types = append(pkg.Types, td)
				pkg.Funcs = append(pkg.Funcs, funcs...)
			}
		}
	}

	logging.ScanDebug("parsed %s: %d types, %d funcs in %v",
		filepath.Base(path), len(pkg.Types), len(pkg.Funcs), time.Since(start))
	emit(pkg)
}

// parseDirectives extracts require directives from a comment group. Bad
// directives become diagnostics and are dropped.
func (s *Scanner) parseDirectives(fset *token.FileSet, group *ast.CommentGroup, reporter diag.Reporter, forceKind directive.Kind) []directive.Requirement {
	var reqs []directive.Requirement
	for _, c := range group.List {
		payload, ok := directive.Match(s.opts.Marker, c.Text)
		if !ok {
			continue
		}
		pos := fset.Position(c.Pos())
		req, err := directive.Parse(payload, pos)
		if err != nil {
			reporter.Report(diag.Errorf(pos, diag.CodeBadDirective, "", "%v", err))
			continue
		}
		if forceKind != "" {
			req.Kind = forceKind
		}
		reqs = append(reqs, req)
	}
	return reqs
}

// parseTypeSpec builds a TypeDecl. Directives may sit on the GenDecl doc
// (the common single-type form) or on the TypeSpec inside a grouped decl.
// Interface method declarations are lifted into FuncDecls so the checker
// resolves them like ordinary methods.
func (s *Scanner) parseTypeSpec(fset *token.FileSet, decl *ast.GenDecl, spec *ast.TypeSpec, path, pkgName string, reporter diag.Reporter) (TypeDecl, []FuncDecl) {
	name := spec.Name.Name

	kind := TypeOther
	refPrefix := "type"
	switch spec.Type.(type) {
	case *ast.StructType:
		kind = TypeStruct
		refPrefix = "struct"
	case *ast.InterfaceType:
		kind = TypeInterface
		refPrefix = "interface"
	}

	td := TypeDecl{
		Name:    name,
		Kind:    kind,
		Package: pkgName,
		File:    path,
		Pos:     fset.Position(spec.Pos()),
		Ref:     buildRef(refPrefix, pkgName, name, ""),
	}

	if decl.Doc != nil {
		td.Requirements = append(td.Requirements, s.parseDirectives(fset, decl.Doc, reporter, "")...)
	}
	if spec.Doc != nil {
		td.Requirements = append(td.Requirements, s.parseDirectives(fset, spec.Doc, reporter, "")...)
	}

	var funcs []FuncDecl
	if iface, ok := spec.Type.(*ast.InterfaceType); ok && iface.Methods != nil {
		for _, field := range iface.Methods.List {
			ft, ok := field.Type.(*ast.FuncType)
			if !ok || len(field.Names) == 0 {
				continue // embedded interface
			}
			for _, ident := range field.Names {
				params, variadic := fieldTypes(ft.Params)
				results, _ := fieldTypes(ft.Results)
				funcs = append(funcs, FuncDecl{
					Name:      ident.Name,
					Package:   pkgName,
					Recv:      name,
					Exported:  ast.IsExported(ident.Name),
					Params:    params,
					Results:   results,
					Variadic:  variadic,
					FromIface: true,
					File:      path,
					Pos:       fset.Position(ident.Pos()),
					Ref:       buildRef("fn", pkgName, ident.Name, name),
				})
			}
		}
	}

	return td, funcs
}

// parseFuncDecl builds the FuncDecl model for a function or method.
func (s *Scanner) parseFuncDecl(fset *token.FileSet, decl *ast.FuncDecl, path, pkgName string) FuncDecl {
	name := decl.Name.Name
	params, variadic := fieldTypes(decl.Type.Params)
	results, _ := fieldTypes(decl.Type.Results)

	fd := FuncDecl{
		Name:     name,
		Package:  pkgName,
		Exported: ast.IsExported(name),
		Params:   params,
		Results:  results,
		Variadic: variadic,
		File:     path,
		Pos:      fset.Position(decl.Name.Pos()),
		Ref:      buildRef("fn", pkgName, name, ""),
	}

	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		recvType, isPointer := receiverTypeInfo(decl.Recv.List[0].Type)
		fd.Recv = recvType
		fd.RecvPointer = isPointer
		if recvType != "" {
			fd.Ref = buildRef("fn", pkgName, name, recvType)
		}
	}

	return fd
}

// fieldTypes renders a parameter or result list to canonical type strings.
// A field declaring several names (a, b int) contributes one entry per name.
func fieldTypes(list *ast.FieldList) ([]string, bool) {
	if list == nil {
		return nil, false
	}
	var typs []string
	variadic := false
	for _, field := range list.List {
		var rendered string
		if ell, ok := field.Type.(*ast.Ellipsis); ok {
			variadic = true
			rendered = "..." + types.ExprString(ell.Elt)
		} else {
			rendered = types.ExprString(field.Type)
		}
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			typs = append(typs, rendered)
		}
	}
	return typs, variadic
}

// receiverTypeInfo extracts the base type name and pointer-ness of a method
// receiver, unwrapping generics instantiation if present.
func receiverTypeInfo(expr ast.Expr) (string, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, false
	case *ast.StarExpr:
		name, _ := receiverTypeInfo(t.X)
		return name, true
	case *ast.IndexExpr:
		return receiverTypeInfo(t.X)
	case *ast.IndexListExpr:
		return receiverTypeInfo(t.X)
	}
	return "", false
}
