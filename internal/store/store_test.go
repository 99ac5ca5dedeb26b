package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/groovy-lsp-index/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, s.Initialize(path, 1<<20))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustSymbol(t *testing.T, name string, kind types.SymbolKind, location string, line, col int) types.Symbol {
	t.Helper()
	sym, err := types.NewSymbol(name, kind, location, line, col)
	require.NoError(t, err)
	return sym
}

func TestUninitializedStoreRejectsOperations(t *testing.T) {
	s := New()
	_, err := s.Search("")
	require.Error(t, err)
}

func TestAddSymbolAndSearchByPrefix(t *testing.T) {
	s := newTestStore(t)

	a := mustSymbol(t, "com.example.Foo", types.KindClass, "Foo.groovy", 1, 1)
	b := mustSymbol(t, "com.example.FooHelper", types.KindClass, "FooHelper.groovy", 1, 1)
	c := mustSymbol(t, "com.example.Bar", types.KindClass, "Bar.groovy", 1, 1)

	require.NoError(t, s.AddSymbol(a))
	require.NoError(t, s.AddSymbol(b))
	require.NoError(t, s.AddSymbol(c))

	results, err := s.Search("com.example.Foo")
	require.NoError(t, err)
	require.Len(t, results, 2)

	all, err := s.Search("")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestAddSymbolIdempotentOnUniquenessTuple(t *testing.T) {
	s := newTestStore(t)
	sym := mustSymbol(t, "com.example.Foo", types.KindClass, "Foo.groovy", 3, 1)

	require.NoError(t, s.AddSymbol(sym))
	require.NoError(t, s.AddSymbol(sym))

	results, err := s.Search("com.example.Foo")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestRemoveFileDeletesOnlyItsSymbols(t *testing.T) {
	s := newTestStore(t)

	keep := mustSymbol(t, "com.example.Keep", types.KindClass, "Keep.groovy", 1, 1)
	gone := mustSymbol(t, "com.example.Gone", types.KindClass, "Gone.groovy", 1, 1)

	require.NoError(t, s.AddSymbol(keep))
	require.NoError(t, s.AddSymbol(gone))
	require.NoError(t, s.AddFile("Gone.groovy"))

	require.NoError(t, s.RemoveFile("Gone.groovy"))

	results, err := s.Search("")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "com.example.Keep", results[0].Name)
}

func TestGetFileSymbolsScopesToLocation(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddSymbol(mustSymbol(t, "com.example.A", types.KindClass, "A.groovy", 1, 1)))
	require.NoError(t, s.AddSymbol(mustSymbol(t, "com.example.B", types.KindClass, "B.groovy", 1, 1)))

	results, err := s.GetFileSymbols("A.groovy")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "com.example.A", results[0].Name)
}

func TestCacheInvalidatedOnWrite(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Search("com.example")
	require.NoError(t, err)

	require.NoError(t, s.AddSymbol(mustSymbol(t, "com.example.New", types.KindClass, "New.groovy", 1, 1)))

	results, err := s.Search("com.example")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestCloseIsIdempotentAndRejectsFurtherOperations(t *testing.T) {
	s := New()
	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, s.Initialize(path, 1<<20))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Search("")
	require.Error(t, err)
}
