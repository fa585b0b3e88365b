package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSort(t *testing.T) {
	tests := []struct {
		name          string
		nodes         []string
		edges         []Edge
		target        map[string]bool
		expectedOrder []string
		expectCycleAt string
	}{
		{
			name:          "linear chain",
			nodes:         []string{"a", "b", "c"},
			edges:         []Edge{{"a", "b"}, {"b", "c"}},
			expectedOrder: []string{"a", "b", "c"},
		},
		{
			name:          "insertion order breaks ties",
			nodes:         []string{"c", "a", "b"},
			edges:         nil,
			expectedOrder: []string{"c", "a", "b"},
		},
		{
			name:          "diamond",
			nodes:         []string{"a", "b", "c", "d"},
			edges:         []Edge{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			expectedOrder: []string{"a", "b", "c", "d"},
		},
		{
			name:          "subset ignores outside edges",
			nodes:         []string{"a", "b", "c"},
			edges:         []Edge{{"a", "b"}, {"b", "c"}},
			target:        map[string]bool{"b": true, "c": true},
			expectedOrder: []string{"b", "c"},
		},
		{
			name:          "single node subset is trivial",
			nodes:         []string{"a", "b"},
			edges:         []Edge{{"a", "b"}},
			target:        map[string]bool{"b": true},
			expectedOrder: []string{"b"},
		},
		{
			name:          "two node cycle",
			nodes:         []string{"a", "b"},
			edges:         []Edge{{"a", "b"}, {"b", "a"}},
			expectCycleAt: "a",
		},
		{
			name:          "cycle behind a clean prefix",
			nodes:         []string{"a", "b", "c"},
			edges:         []Edge{{"a", "b"}, {"b", "c"}, {"c", "b"}},
			expectCycleAt: "b",
		},
		{
			name:          "cycle outside subset does not block",
			nodes:         []string{"a", "b", "c"},
			edges:         []Edge{{"b", "c"}, {"c", "b"}},
			target:        map[string]bool{"a": true},
			expectedOrder: []string{"a"},
		},
		{
			name:          "empty graph",
			nodes:         nil,
			expectedOrder: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(tt.nodes, tt.edges)
			order, err := g.Sort(tt.target)
			if tt.expectCycleAt != "" {
				var cycleErr *CycleError
				require.ErrorAs(t, err, &cycleErr)
				require.Equal(t, tt.expectCycleAt, cycleErr.NodeID)
				require.Nil(t, order)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expectedOrder, order)
		})
	}
}

func TestSortRespectsDependencies(t *testing.T) {
	nodes := []string{"n1", "n2", "n3", "n4", "n5", "n6"}
	edges := []Edge{
		{"n1", "n3"}, {"n2", "n4"}, {"n3", "n5"}, {"n4", "n5"}, {"n5", "n6"},
	}
	g := New(nodes, edges)
	order, err := g.Sort(nil)
	require.NoError(t, err)
	require.Len(t, order, len(nodes))

	index := make(map[string]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	for _, edge := range edges {
		require.Less(t, index[edge.From], index[edge.To],
			"edge %s -> %s out of order in %v", edge.From, edge.To, order)
	}
}

func TestDescendants(t *testing.T) {
	g := New(
		[]string{"a", "b", "c", "d", "e"},
		[]Edge{{"a", "b"}, {"b", "c"}, {"a", "d"}, {"e", "a"}},
	)

	require.Equal(t, map[string]bool{"b": true, "c": true, "d": true}, g.Descendants("a"))
	require.Equal(t, map[string]bool{"c": true}, g.Descendants("b"))
	require.Empty(t, g.Descendants("c"))

	// Strictly-upstream nodes are never descendants.
	require.NotContains(t, g.Descendants("a"), "e")
}

func TestNewDropsDanglingEdges(t *testing.T) {
	g := New([]string{"a"}, []Edge{{"a", "ghost"}, {"ghost", "a"}})
	order, err := g.Sort(nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, order)
}
