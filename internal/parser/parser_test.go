package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileMissingReturnsEmpty(t *testing.T) {
	b := NewBridge(NewHeuristicGroovyParser())
	symbols := b.ParseFile("/nonexistent/path/Foo.groovy")
	assert.Empty(t, symbols)
}

func TestParseFileOversizedReturnsEmpty(t *testing.T) {
	big := make([]byte, MaxFileSize+1)
	path := writeTemp(t, "Big.groovy", string(big))

	b := NewBridge(NewHeuristicGroovyParser())
	symbols := b.ParseFile(path)
	assert.Empty(t, symbols)
}

func TestParseFileEmitsClassAndMethod(t *testing.T) {
	source := `package com.example

class Greeter {
    String name

    Greeter(String name) {
        this.name = name
    }

    String greet() {
        return "hi " + name
    }
}
`
	path := writeTemp(t, "Greeter.groovy", source)
	b := NewBridge(NewHeuristicGroovyParser())
	symbols := b.ParseFile(path)

	require.NotEmpty(t, symbols)

	var kinds []types.SymbolKind
	kindByName := map[string]types.SymbolKind{}
	names := map[string]bool{}
	for _, s := range symbols {
		kinds = append(kinds, s.Kind)
		names[s.Name] = true
		kindByName[s.Name] = s.Kind
	}
	assert.Contains(t, kinds, types.KindClass)
	assert.True(t, names["Greeter"])
	assert.True(t, names["Greeter.<init>"])
	assert.True(t, names["Greeter.greet"])
	// "String name" has no explicit visibility modifier, so it is a Groovy
	// property (implicit getter/setter), not a plain Field.
	assert.Equal(t, types.KindProperty, kindByName["Greeter.name"])
}

// TestParseFileEmitsPropertyForImplicitVisibilityField exercises spec.md §8
// scenario 2's `class Foo { String bar }`: a default-visibility field
// generates a Property symbol, not a Field symbol.
func TestParseFileEmitsPropertyForImplicitVisibilityField(t *testing.T) {
	source := "package a\nclass Foo {\n    String bar\n}\n"
	path := writeTemp(t, "Foo.groovy", source)
	b := NewBridge(NewHeuristicGroovyParser())
	symbols := b.ParseFile(path)

	require.NotEmpty(t, symbols)

	var barKind types.SymbolKind
	found := false
	for _, s := range symbols {
		if s.Name == "Foo.bar" {
			barKind = s.Kind
			found = true
		}
	}
	require.True(t, found, "expected Foo.bar to be emitted")
	assert.Equal(t, types.KindProperty, barKind)
}

// TestParseFileEmitsFieldForExplicitVisibility confirms an explicit
// modifier keeps a declaration as a Field rather than a Property.
func TestParseFileEmitsFieldForExplicitVisibility(t *testing.T) {
	source := "class Foo {\n    private String bar\n}\n"
	path := writeTemp(t, "Foo.groovy", source)
	b := NewBridge(NewHeuristicGroovyParser())
	symbols := b.ParseFile(path)

	require.NotEmpty(t, symbols)

	var barKind types.SymbolKind
	found := false
	for _, s := range symbols {
		if s.Name == "Foo.bar" {
			barKind = s.Kind
			found = true
		}
	}
	require.True(t, found, "expected Foo.bar to be emitted")
	assert.Equal(t, types.KindField, barKind)
}

func TestParseFileRecognizesTraitByKeyword(t *testing.T) {
	source := `trait Flyable {
    void fly() {
        println "flying"
    }
}
`
	path := writeTemp(t, "Flyable.groovy", source)
	b := NewBridge(NewHeuristicGroovyParser())
	symbols := b.ParseFile(path)

	require.NotEmpty(t, symbols)
	assert.Equal(t, types.KindTrait, symbols[0].Kind)
}

func TestParseJavaFileFiltersControlFlowKeywords(t *testing.T) {
	source := `package com.example;

public class Widget {
    public Widget() {
        if (true) {
            for (int i = 0; i < 1; i++) {
            }
        }
    }

    public void spin() {
    }
}
`
	path := writeTemp(t, "Widget.java", source)
	symbols := ParseJavaFile(path)

	require.NotEmpty(t, symbols)
	for _, s := range symbols {
		assert.NotEqual(t, "Widget.if", s.Name)
		assert.NotEqual(t, "Widget.for", s.Name)
	}

	names := map[string]bool{}
	for _, s := range symbols {
		names[s.Name] = true
	}
	assert.True(t, names["Widget"])
	assert.True(t, names["Widget.spin"])
}

func TestParseJavaFileMissingReturnsEmpty(t *testing.T) {
	symbols := ParseJavaFile("/nonexistent/Widget.java")
	assert.Empty(t, symbols)
}
