package surface

import (
	"strings"

	"github.com/evanw/esclosure/internal/helpers"
	"github.com/evanw/esclosure/internal/js_ast"
	"github.com/evanw/esclosure/internal/logger"
)

// One named or namespace binding. "Imported" is only set when the import
// renames the binding with "as".
type ImportBinding struct {
	Imported  string
	Local     string
	Namespace bool
}

func (b ImportBinding) String() string {
	if b.Namespace {
		return "* as " + b.Local
	}
	if b.Imported != "" {
		return exportName(b.Imported) + " as " + b.Local
	}
	return b.Local
}

// Every local name appears exactly once across "Default", "Specific" and
// the namespace binding, and "Local" lists all of them in source order.
type ImportSpecifierSet struct {
	Default   *string
	Specific  []ImportBinding
	Local     []string
	Namespace bool
}

func Specifiers(s *js_ast.SImport) ImportSpecifierSet {
	var set ImportSpecifierSet

	if s.DefaultName != nil {
		name := s.DefaultName.Data.(*js_ast.EIdentifier).Name
		set.Default = &name
		set.Local = append(set.Local, name)
	}

	if s.NamespaceName != nil {
		name := s.NamespaceName.Data.(*js_ast.EIdentifier).Name
		set.Specific = append(set.Specific, ImportBinding{Local: name, Namespace: true})
		set.Local = append(set.Local, name)
		set.Namespace = true
	}

	for _, item := range s.Items {
		binding := ImportBinding{Local: item.LocalName()}
		if item.Alias != "" {
			binding.Imported = item.Name
		}
		set.Specific = append(set.Specific, binding)
		set.Local = append(set.Local, binding.Local)
	}

	return set
}

// Prints an import statement for "set" in the compact form used in
// compiler output, such as "import a,{b as c}from'./x';".
func FormatSpecifiers(set ImportSpecifierSet, source string) string {
	var values []string
	var named []string

	if set.Default != nil {
		values = append(values, *set.Default)
	}
	for _, binding := range set.Specific {
		if binding.Namespace {
			values = append(values, binding.String())
		} else {
			named = append(named, binding.String())
		}
	}
	if len(named) > 0 {
		values = append(values, "{"+strings.Join(named, ",")+"}")
	}

	sb := strings.Builder{}
	sb.WriteString("import")
	if len(values) > 0 {
		if len(named) == 0 || len(values) > 1 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.Join(values, ","))
		if len(named) == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("from")
	} else {
		sb.WriteByte(' ')
	}
	sb.Write(helpers.QuoteSingle(source))
	sb.WriteByte(';')
	return sb.String()
}

type Import struct {
	Source      string
	SourceRange logger.Range
	Specifiers  ImportSpecifierSet
	Range       logger.Range
}

func Imports(tree *js_ast.AST) []Import {
	var imports []Import
	for _, stmt := range tree.Stmts {
		if s, ok := stmt.Data.(*js_ast.SImport); ok {
			imports = append(imports, Import{
				Source:      s.Source.Text,
				SourceRange: s.Source.Range,
				Specifiers:  Specifiers(s),
				Range:       stmt.Range,
			})
		}
	}
	return imports
}

// Names that aren't identifiers are written as string literals
func exportName(name string) string {
	if js_ast.IsIdentifierName(name) {
		return name
	}
	return string(helpers.QuoteSingle(name))
}

// Prints the body of an export clause such as "a,b as c"
func FormatExportItems(items []ExportItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Local == item.Exported {
			parts = append(parts, exportName(item.Local))
		} else {
			parts = append(parts, exportName(item.Local)+" as "+exportName(item.Exported))
		}
	}
	return strings.Join(parts, ",")
}

type ExportItem struct {
	Local    string
	Exported string
}
