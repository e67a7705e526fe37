package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/types"
)

func seedTwoFiles(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.ReplaceFile(ctx, "a.go", 1, 10,
		[]types.Symbol{
			{Name: "First", Kind: types.KindFunction, FilePath: "a.go", LineStart: 1},
			{Name: "Second", Kind: types.KindFunction, FilePath: "a.go", LineStart: 9},
		},
		[]types.CallEdge{{CallerFile: "a.go", CallerSymbol: "First", CalleeSymbol: "Second"}},
		[]types.ImportRecord{{FilePath: "a.go", Name: "fmt", Src: "fmt", IsUsed: true}},
	))
	require.NoError(t, s.ReplaceFile(ctx, "b.go", 2, 20,
		[]types.Symbol{{Name: "Third", Kind: types.KindFunction, FilePath: "b.go", LineStart: 3}},
		[]types.CallEdge{{CallerFile: "b.go", CallerSymbol: "Third", CalleeSymbol: "First"}},
		[]types.ImportRecord{{FilePath: "b.go", Name: "os", Src: "os", IsUsed: false}},
	))
}

func TestGetSymbolsInsertionOrderedAndBounded(t *testing.T) {
	s := openTemp(t)
	seedTwoFiles(t, s)
	ctx := context.Background()

	all, err := s.GetSymbols(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "First", all[0].Name)
	require.Equal(t, "Second", all[1].Name)
	require.Equal(t, "Third", all[2].Name)

	bounded, err := s.GetSymbols(ctx, 2)
	require.NoError(t, err)
	require.Len(t, bounded, 2)
	require.Equal(t, "First", bounded[0].Name)
}

func TestGetCallGraphInsertionOrdered(t *testing.T) {
	s := openTemp(t)
	seedTwoFiles(t, s)

	edges, err := s.GetCallGraph(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	require.Equal(t, "Second", edges[0].CalleeSymbol)
	require.Equal(t, "First", edges[1].CalleeSymbol)
}

func TestGetImportUsagePreservesIsUsed(t *testing.T) {
	s := openTemp(t)
	seedTwoFiles(t, s)

	imports, err := s.GetImportUsage(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, imports, 2)
	require.True(t, imports[0].IsUsed)
	require.False(t, imports[1].IsUsed)
}

func TestProjectionsEmptyOnFreshStore(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	symbols, err := s.GetSymbols(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, symbols)

	edges, err := s.GetCallGraph(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, edges)
}
