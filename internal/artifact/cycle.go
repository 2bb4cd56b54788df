package artifact

import (
	"maps"
	"slices"
	"strings"
)

// prereqGraph maps a planned key to its direct prerequisites.
type prereqGraph map[Key][]Key

// cyclePaths returns one readable path per construction cycle in g, such
// as [A, B, A]. Placeholders are decided by the closure computed in commit;
// these paths only feed diagnostics.
func cyclePaths(g prereqGraph) [][]Key {
	var paths [][]Key
	for _, scc := range tarjanSCC(g) {
		if len(scc) == 1 && !slices.Contains(g[scc[0]], scc[0]) {
			continue
		}
		paths = append(paths, walkCycle(scc, g))
	}
	slices.SortFunc(paths, func(a, b []Key) int { return Compare(a[0], b[0]) })
	return paths
}

// tarjanSCC finds the strongly connected components of g. Nodes are
// visited in key order so the output is deterministic.
func tarjanSCC(g prereqGraph) [][]Key {
	var (
		index   int
		stack   []Key
		indices = make(map[Key]int)
		lowlink = make(map[Key]int)
		onStack = make(map[Key]bool)
		sccs    [][]Key
	)

	var connect func(Key)
	connect = func(v Key) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, planned := g[w]; !planned {
				// Existing artifacts cannot be on a cycle.
				continue
			}
			if _, seen := indices[w]; !seen {
				connect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []Key
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, SortKeys(scc))
		}
	}

	nodes := SortKeys(slices.Collect(maps.Keys(g)))
	for _, v := range nodes {
		if _, seen := indices[v]; !seen {
			connect(v)
		}
	}
	return sccs
}

// walkCycle follows edges inside scc from its smallest key until it
// returns to the start.
func walkCycle(scc []Key, g prereqGraph) []Key {
	members := make(map[Key]bool, len(scc))
	for _, k := range scc {
		members[k] = true
	}
	start := scc[0]
	path := []Key{start}
	visited := map[Key]bool{start: true}
	current := start
	for {
		var next Key
		found := false
		for _, w := range g[current] {
			if w == start {
				next, found = w, true
				break
			}
			if members[w] && !visited[w] && !found {
				next, found = w, true
			}
		}
		if !found {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}

func formatPath(path []Key) string {
	parts := make([]string, len(path))
	for i, k := range path {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}
