package parser

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/groovy-lsp-index/internal/ast"
)

// HeuristicGroovyParser is the default GroovyParser: a conservative
// line-oriented scanner, used in place of a real Groovy compiler frontend
// (out of scope per spec.md §4.2). It recognizes top-level and single-level
// nested class/interface/trait/enum/annotation declarations, constructors,
// methods, fields and closures by regular expression, the same fallback
// posture spec.md mandates outright for the Java path. A real frontend
// satisfies GroovyParser with an actual AST and can replace this without
// any change to the visitor in parser.go.
type HeuristicGroovyParser struct{}

// NewHeuristicGroovyParser returns the default GroovyParser.
func NewHeuristicGroovyParser() *HeuristicGroovyParser {
	return &HeuristicGroovyParser{}
}

var (
	groovyPackageRe     = regexp.MustCompile(`^\s*package\s+([\w.]+)`)
	groovyTypeRe        = regexp.MustCompile(`^\s*(?:@\w+(?:\([^)]*\))?\s*)*(?:public|private|protected|abstract|final|static|\s)*\b(class|interface|trait|enum|@interface)\s+(\w+)`)
	groovyAnnotationRe  = regexp.MustCompile(`@(\w+)`)
	groovySuperIfaceRe  = regexp.MustCompile(`implements\s+([\w.,\s]+?)(?:\{|$)`)
	groovyFieldRe       = regexp.MustCompile(`^\s*(?:public|private|protected|static|final|def|\s)*[\w<>\[\],.$]+\s+(\w+)\s*(?:=[^;{]*)?;?\s*$`)
	// groovyExplicitVisibilityRe recognizes an explicit public/private/protected
	// modifier. A field declaration without one of these is a Groovy property
	// (default visibility triggers the compiler's implicit getter/setter),
	// per spec.md §8 scenario 2 (`class Foo { String bar }` is a Property).
	groovyExplicitVisibilityRe = regexp.MustCompile(`^\s*(?:public|private|protected)\b`)
	groovyMethodRe      = regexp.MustCompile(`^\s*(?:public|private|protected|static|final|def|abstract|\s)*[\w<>\[\],.$]+\s+(\w+)\s*\(([^)]*)\)\s*\{`)
	groovyConstructorRe = regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(\w+)\s*\(([^)]*)\)\s*\{`)
	groovyClosureRe     = regexp.MustCompile(`(\w+)\s*=\s*\{`)
)

// classFrame tracks the brace depth a class body was opened at, so its
// closing brace can be told apart from the closing brace of a method or
// constructor body nested inside it.
type classFrame struct {
	node      *ast.ClassNode
	openDepth int
}

// ParseSource implements GroovyParser.
func (p *HeuristicGroovyParser) ParseSource(content []byte, fileName string) (*ast.Module, error) {
	lines := strings.Split(string(content), "\n")
	module := &ast.Module{}

	var stack []classFrame
	depth := 0

	currentClass := func() *ast.ClassNode {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1].node
	}

	for i, line := range lines {
		lineNo := i + 1
		opens := strings.Count(line, "{")
		closes := strings.Count(line, "}")

		if module.PackageName == "" {
			if m := groovyPackageRe.FindStringSubmatch(line); m != nil {
				module.PackageName = m[1]
				depth += opens - closes
				continue
			}
		}

		if m := groovyTypeRe.FindStringSubmatch(line); m != nil {
			node := &ast.ClassNode{
				Name: m[2],
				Pos:  ast.Position{Line: lineNo, Column: 1},
			}
			switch m[1] {
			case "interface", "trait":
				node.NodeKind = ast.NodeInterface
				if m[1] == "trait" {
					node.Annotations = append(node.Annotations, traitAnnotation)
				}
			case "enum":
				node.NodeKind = ast.NodeEnum
			case "@interface":
				node.NodeKind = ast.NodeAnnotation
			default:
				node.NodeKind = ast.NodeClass
			}
			for _, am := range groovyAnnotationRe.FindAllStringSubmatch(line, -1) {
				node.Annotations = append(node.Annotations, am[1])
			}
			if im := groovySuperIfaceRe.FindStringSubmatch(line); im != nil {
				for _, iface := range strings.Split(im[1], ",") {
					node.Interfaces = append(node.Interfaces, strings.TrimSpace(iface))
				}
			}

			if parent := currentClass(); parent != nil {
				parent.InnerClasses = append(parent.InnerClasses, node)
			} else {
				module.Classes = append(module.Classes, node)
			}
			depth += opens - closes
			stack = append(stack, classFrame{node: node, openDepth: depth})
			continue
		}

		class := currentClass()
		if class == nil {
			if m := groovyClosureRe.FindStringSubmatch(line); m != nil {
				module.TopLevelClosures = append(module.TopLevelClosures, &ast.ClosureNode{
					Pos: ast.Position{Line: lineNo, Column: 1},
				})
			}
			depth += opens - closes
			continue
		}

		switch {
		case groovyMethodRe.MatchString(line):
			m := groovyMethodRe.FindStringSubmatch(line)
			name := m[1]
			if !javaControlFlowKeywords[name] {
				class.Methods = append(class.Methods, &ast.MethodNode{Name: name, Pos: ast.Position{Line: lineNo, Column: 1}})
			}
		case groovyConstructorRe.MatchString(line) && groovyConstructorRe.FindStringSubmatch(line)[1] == class.Name:
			class.Constructors = append(class.Constructors, &ast.MethodNode{Name: class.Name, Pos: ast.Position{Line: lineNo, Column: 1}})
		case groovyClosureRe.MatchString(line):
			class.Closures = append(class.Closures, &ast.ClosureNode{Pos: ast.Position{Line: lineNo, Column: 1}})
		case groovyFieldRe.MatchString(line):
			m := groovyFieldRe.FindStringSubmatch(line)
			node := &ast.FieldNode{Name: m[1], Pos: ast.Position{Line: lineNo, Column: 1}}
			if groovyExplicitVisibilityRe.MatchString(line) {
				class.Fields = append(class.Fields, node)
			} else {
				class.Properties = append(class.Properties, node)
			}
		}

		depth += opens - closes
		for len(stack) > 0 && depth < stack[len(stack)-1].openDepth {
			stack = stack[:len(stack)-1]
		}
	}

	return module, nil
}
