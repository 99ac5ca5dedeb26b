// Package parser is the Parser/Visitor Bridge: it turns one source file's
// textual content into a list of types.Symbol records. A real Groovy/Java
// compiler frontend is out of scope (spec.md §4.2 calls it "the external
// parser"); GroovyParser is the seam such a frontend would plug into. In
// its absence this package ships a conservative regex/line-scanning
// implementation, the same fallback posture spec.md §4.2 specifies
// outright for parseJavaFile.
package parser

import (
	"os"
	"regexp"
	"strings"

	"github.com/standardbeagle/groovy-lsp-index/internal/ast"
	"github.com/standardbeagle/groovy-lsp-index/internal/obslog"
	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

// MaxFileSize is the size guard from spec.md §4.2: files over this are
// skipped entirely, returning zero symbols.
const MaxFileSize = 10 * 1024 * 1024

// traitAnnotation is the fully-qualified name of Groovy's trait marker
// annotation.
const traitAnnotation = "groovy.transform.Trait"

// traitMarkerInterface is the fully-qualified name of the inherited
// interface that also signals trait-ness.
const traitMarkerInterface = "groovy.transform.Trait$TraitMarker"

// traitHelperSuffix names the synthetic helper class Groovy's compiler
// emits alongside a trait's interface.
const traitHelperSuffix = "$Trait$Helper"

// GroovyParser obtains an abstract module tree from source text. The
// Parser/Visitor Bridge invokes it once per file and walks the result;
// swapping in a real compiler frontend means implementing this interface,
// nothing else in this package changes.
type GroovyParser interface {
	ParseSource(content []byte, fileName string) (*ast.Module, error)
}

var log = obslog.For("parser")

// Bridge owns a GroovyParser and applies the visitor emission rules to its
// output.
type Bridge struct {
	parser GroovyParser
}

// NewBridge wires a Bridge to the given parser implementation.
func NewBridge(p GroovyParser) *Bridge {
	return &Bridge{parser: p}
}

// ParseFile reads path, guards its size and existence, invokes the parser,
// and visits the resulting module tree. Every guard failure returns an
// empty slice rather than an error: a file that cannot be parsed is
// "indexed but producing zero symbols," not "not indexed" (spec.md §4.2).
func (b *Bridge) ParseFile(path string) []types.Symbol {
	info, err := os.Stat(path)
	if err != nil {
		log.WithPath(path).Warn("file does not exist, skipping")
		return nil
	}
	if info.Size() > MaxFileSize {
		log.WithPath(path).Warnf("file exceeds %d bytes, skipping", MaxFileSize)
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.WithPath(path).Warnf("failed to read file: %v", err)
		return nil
	}

	module, err := b.parser.ParseSource(content, path)
	if err != nil {
		log.WithPath(path).Warnf("parse failed: %v", err)
		return nil
	}

	return visit(module, path)
}

// visit walks module and emits symbols per the rules in spec.md §4.2.
func visit(module *ast.Module, location string) []types.Symbol {
	v := &visitor{location: location, seen: make(map[*ast.ClassNode]bool)}
	for _, class := range module.Classes {
		v.visitClass(class, "")
	}
	for _, closure := range module.TopLevelClosures {
		v.emitClosure(closure, "")
	}
	return v.symbols
}

type visitor struct {
	location string
	seen     map[*ast.ClassNode]bool
	symbols  []types.Symbol
}

func (v *visitor) visitClass(class *ast.ClassNode, enclosing string) {
	if class == nil || v.seen[class] {
		return
	}
	v.seen[class] = true

	if class.IsScript {
		// Synthetic module-level wrapper classes are never emitted, but
		// their members (top-level methods/closures) still belong to the
		// module and are visited as if enclosing were blank.
		v.visitMembers(class, "")
		for _, inner := range class.InnerClasses {
			v.visitClass(inner, "")
		}
		return
	}

	qualifiedName := class.Name
	if enclosing != "" {
		qualifiedName = enclosing + "." + class.Name
	}

	kind := v.classifyKind(class)
	if sym, err := types.NewSymbol(qualifiedName, kind, v.location, class.Pos.Line, class.Pos.Column); err == nil {
		v.symbols = append(v.symbols, sym)
	}

	v.visitMembers(class, qualifiedName)

	for _, inner := range class.InnerClasses {
		v.visitClass(inner, qualifiedName)
	}
}

// classifyKind applies the kind-discrimination and trait-recognition rules.
func (v *visitor) classifyKind(class *ast.ClassNode) types.SymbolKind {
	switch class.NodeKind {
	case ast.NodeEnum:
		return types.KindEnum
	case ast.NodeAnnotation:
		return types.KindAnnotation
	case ast.NodeInterface:
		if v.isTrait(class) {
			return types.KindTrait
		}
		return types.KindInterface
	default:
		return types.KindClass
	}
}

// isTrait accepts any of the three recognition signals from spec.md §4.2.
func (v *visitor) isTrait(class *ast.ClassNode) bool {
	for _, a := range class.Annotations {
		if a == traitAnnotation {
			return true
		}
	}
	for _, i := range class.Interfaces {
		if i == traitMarkerInterface {
			return true
		}
	}
	helperName := class.Name + traitHelperSuffix
	for _, other := range class.InnerClasses {
		if other.Name == helperName {
			return true
		}
	}
	return false
}

func (v *visitor) visitMembers(class *ast.ClassNode, qualifiedName string) {
	for _, ctor := range class.Constructors {
		name := qualify(qualifiedName, "<init>")
		if sym, err := types.NewSymbol(name, types.KindConstructor, v.location, ctor.Pos.Line, ctor.Pos.Column); err == nil {
			v.symbols = append(v.symbols, sym)
		}
	}
	for _, m := range class.Methods {
		if m.IsSynthetic || m.IsAbstract {
			continue
		}
		name := qualify(qualifiedName, m.Name)
		if sym, err := types.NewSymbol(name, types.KindMethod, v.location, m.Pos.Line, m.Pos.Column); err == nil {
			v.symbols = append(v.symbols, sym)
		}
	}
	for _, f := range class.Fields {
		if f.IsSynthetic {
			continue
		}
		name := qualify(qualifiedName, f.Name)
		if sym, err := types.NewSymbol(name, types.KindField, v.location, f.Pos.Line, f.Pos.Column); err == nil {
			v.symbols = append(v.symbols, sym)
		}
	}
	for _, p := range class.Properties {
		name := qualify(qualifiedName, p.Name)
		if sym, err := types.NewSymbol(name, types.KindProperty, v.location, p.Pos.Line, p.Pos.Column); err == nil {
			v.symbols = append(v.symbols, sym)
		}
	}
	for _, ec := range class.EnumConstants {
		name := qualify(qualifiedName, ec.Name)
		if sym, err := types.NewSymbol(name, types.KindEnumConstant, v.location, ec.Pos.Line, ec.Pos.Column); err == nil {
			v.symbols = append(v.symbols, sym)
		}
	}
	for _, c := range class.Closures {
		v.emitClosure(c, qualifiedName)
	}
}

func (v *visitor) emitClosure(c *ast.ClosureNode, enclosing string) {
	name := "<closure>"
	if enclosing != "" {
		name = enclosing + ".<closure>"
	}
	if sym, err := types.NewSymbol(name, types.KindClosure, v.location, c.Pos.Line, c.Pos.Column); err == nil {
		v.symbols = append(v.symbols, sym)
	}
}

func qualify(enclosing, member string) string {
	if enclosing == "" {
		return member
	}
	return enclosing + "." + member
}

// Regex path for Java source, per spec.md §4.2: conservative, no real
// parser, with control-flow keywords filtered out of method matches.

var (
	javaPackageRe     = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`)
	javaTypeRe        = regexp.MustCompile(`\b(class|interface|enum)\s+(\w+)`)
	javaMethodRe      = regexp.MustCompile(`^\s*(?:public|private|protected|static|final|abstract|\s)*[\w\[\]<>.]+\s+(\w+)\s*\(([^)]*)\)\s*\{`)
	javaConstructorRe = regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(\w+)\s*\(([^)]*)\)\s*\{`)
)

var javaControlFlowKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
}

// ParseJavaFile scans path with regular expressions for class/interface/enum
// declarations, method signatures and constructors, per spec.md §4.2's Java
// path. The package declaration is not read.
func ParseJavaFile(path string) []types.Symbol {
	info, err := os.Stat(path)
	if err != nil {
		log.WithPath(path).Warn("file does not exist, skipping")
		return nil
	}
	if info.Size() > MaxFileSize {
		log.WithPath(path).Warnf("file exceeds %d bytes, skipping", MaxFileSize)
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		log.WithPath(path).Warnf("failed to read file: %v", err)
		return nil
	}

	lines := strings.Split(string(content), "\n")
	var symbols []types.Symbol
	var enclosing string

	for i, line := range lines {
		lineNo := i + 1

		if m := javaTypeRe.FindStringSubmatch(line); m != nil {
			kind := types.KindClass
			switch m[1] {
			case "interface":
				kind = types.KindInterface
			case "enum":
				kind = types.KindEnum
			}
			enclosing = m[2]
			if sym, err := types.NewSymbol(enclosing, kind, path, lineNo, 1); err == nil {
				symbols = append(symbols, sym)
			}
			continue
		}

		if m := javaMethodRe.FindStringSubmatch(line); m != nil {
			methodName := m[1]
			if javaControlFlowKeywords[methodName] {
				continue
			}
			qualified := methodName
			if enclosing != "" {
				qualified = enclosing + "." + methodName
			}
			if sym, err := types.NewSymbol(qualified, types.KindMethod, path, lineNo, 1); err == nil {
				symbols = append(symbols, sym)
			}
			continue
		}

		if m := javaConstructorRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if name == enclosing && !javaControlFlowKeywords[name] {
				qualified := enclosing + ".<init>"
				if sym, err := types.NewSymbol(qualified, types.KindConstructor, path, lineNo, 1); err == nil {
					symbols = append(symbols, sym)
				}
			}
		}
	}

	return symbols
}

// javaPackageName extracts the package clause, if present. Exposed for
// callers that want to qualify Symbol names with the package; unused by
// the conservative scan above, which keeps names enclosing-class-relative
// to match the Groovy path's convention.
func javaPackageName(content string) string {
	if m := javaPackageRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}
