package surface

import (
	"fmt"

	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/logger"
)

type ExportType uint8

const (
	NamedConstant ExportType = iota
	Default
	NamedDefaultFunction
	NamedFunction
	NamedClass
	NamedVariable
	NamedAggregate
)

func (t ExportType) String() string {
	switch t {
	case NamedConstant:
		return "named-constant"
	case Default:
		return "default"
	case NamedDefaultFunction:
		return "named-default-function"
	case NamedFunction:
		return "named-function"
	case NamedClass:
		return "named-class"
	case NamedVariable:
		return "named-variable"
	case NamedAggregate:
		return "named-aggregate"
	default:
		panic("Internal error")
	}
}

type ExportDetail struct {
	// The binding inside the module and the name visible to importers. Both
	// are original names, even when the text spells them mangled.
	Local    string
	Exported string

	// The identifier that refers to this export in the text the detail was
	// extracted from. This is the mangled spelling when the text is mangled,
	// the exported name for re-exports, and empty for "export default <expr>".
	Binding string

	// The module specifier of a re-export, nil for local exports
	Source *string

	// What to remove from the text when the export is lifted: the whole
	// statement for "export {...}", and only the "export" (or "export
	// default") keywords for declarations and default expressions.
	Range logger.Range

	Type ExportType
}

func (d ExportDetail) IsLocal() bool {
	return d.Source == nil
}

func (d ExportDetail) IsDefault() bool {
	return d.Type == Default || d.Type == NamedDefaultFunction || d.Exported == "default"
}

// Maps a possibly-mangled name back to its original spelling
type NameResolver func(name string) (string, bool)

type UnsupportedSyntaxError struct {
	ModuleID string
	Range    logger.Range
	Location *logger.MsgLocation
	Text     string
}

func (e *UnsupportedSyntaxError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s:%d:%d: %s", e.Location.File, e.Location.Line, e.Location.Column, e.Text)
	}
	return fmt.Sprintf("%s: %s", e.ModuleID, e.Text)
}

func (e *UnsupportedSyntaxError) ExitCode() int {
	return exitcode.Unsupported
}

func unsupported(source *logger.Source, r logger.Range, text string) *UnsupportedSyntaxError {
	return &UnsupportedSyntaxError{
		ModuleID: source.KeyPath,
		Range:    r,
		Location: source.LocationForRange(r),
		Text:     text,
	}
}

// ExportDetails describes every export statement at the top level of the
// module in source order. Re-exporting everything from another module can't
// be described without parsing that module, so it is an error.
func ExportDetails(tree *js_ast.AST, source *logger.Source, resolve NameResolver) ([]ExportDetail, error) {
	original := func(name string) string {
		if resolve != nil {
			if name, ok := resolve(name); ok {
				return name
			}
		}
		return name
	}

	var details []ExportDetail
	seen := make(map[string]bool)
	add := func(detail ExportDetail, r logger.Range) error {
		if seen[detail.Exported] {
			return unsupported(source, r, fmt.Sprintf("Multiple exports with the same name %q", detail.Exported))
		}
		seen[detail.Exported] = true
		details = append(details, detail)
		return nil
	}

	for _, stmt := range tree.Stmts {
		switch s := stmt.Data.(type) {
		case *js_ast.SExportStar:
			return nil, unsupported(source, stmt.Range,
				fmt.Sprintf("Re-exporting everything from %q is not supported", s.Source.Text))

		case *js_ast.SExportClause:
			for _, item := range s.Items {
				detail := ExportDetail{
					Local:    original(item.Name),
					Exported: original(item.LocalName()),
					Binding:  item.Name,
					Range:    stmt.Range,
					Type:     NamedConstant,
				}
				if s.Source != nil {
					path := s.Source.Text
					detail.Source = &path
					detail.Type = NamedAggregate
					detail.Binding = item.LocalName()
				}
				if err := add(detail, item.NameRange); err != nil {
					return nil, err
				}
			}

		case *js_ast.SExportDecl:
			prefix := logger.RangeBetween(stmt.Range.Loc.Start, s.Decl.Range.Loc.Start)
			exportType := NamedConstant
			var bindings []string
			switch decl := s.Decl.Data.(type) {
			case *js_ast.SLocal:
				if decl.Kind != js_ast.LocalConst {
					exportType = NamedVariable
				}
				for _, d := range decl.Decls {
					bindings = append(bindings, js_ast.DeclaredNames(d.Binding)...)
				}
			case *js_ast.SFunction:
				exportType = NamedFunction
				if decl.Fn.Name != nil {
					bindings = js_ast.DeclaredNames(*decl.Fn.Name)
				}
			case *js_ast.SClass:
				exportType = NamedClass
				if decl.Class.Name != nil {
					bindings = js_ast.DeclaredNames(*decl.Class.Name)
				}
			}
			for _, binding := range bindings {
				name := original(binding)
				detail := ExportDetail{Local: name, Exported: name, Binding: binding, Range: prefix, Type: exportType}
				if err := add(detail, stmt.Range); err != nil {
					return nil, err
				}
			}

		case *js_ast.SExportDefault:
			prefix := logger.RangeBetween(stmt.Range.Loc.Start, s.Value.Range.Loc.Start)
			detail := ExportDetail{
				Local:    js_ast.DefaultPlaceholder,
				Exported: "default",
				Range:    prefix,
				Type:     Default,
			}
			switch value := s.Value.Data.(type) {
			case *js_ast.SFunction:
				if value.Fn.Name != nil {
					binding := value.Fn.Name.Data.(*js_ast.EIdentifier).Name
					detail.Local, detail.Binding, detail.Type = original(binding), binding, NamedDefaultFunction
				}
			case *js_ast.SClass:
				if value.Class.Name != nil {
					binding := value.Class.Name.Data.(*js_ast.EIdentifier).Name
					detail.Local, detail.Binding = original(binding), binding
				}
			}
			if err := add(detail, stmt.Range); err != nil {
				return nil, err
			}
		}
	}

	return details, nil
}
