package similarity

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// link is a scored pair of files, by index into the analyzed files.
type link struct {
	left, right int
	similarity  float64
}

// clusters links files whose pairs score at least threshold and returns the
// connected components with two or more files, largest first.
func clusters(files []FileInfo, links []link, threshold float64) []Cluster {
	if len(files) < 2 || threshold <= 0 {
		return nil
	}

	g := simple.NewUndirectedGraph()
	for i := range files {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, l := range links {
		if l.similarity < threshold || l.left == l.right {
			continue
		}
		from, to := int64(l.left), int64(l.right)
		if !g.HasEdgeBetween(from, to) {
			g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	var result []Cluster
	for _, component := range topo.ConnectedComponents(g) {
		if len(component) < 2 {
			continue
		}
		paths := make([]string, 0, len(component))
		for _, n := range component {
			paths = append(paths, files[n.ID()].Path)
		}
		slices.Sort(paths)
		result = append(result, Cluster{Files: paths})
	}

	slices.SortFunc(result, func(a, b Cluster) int {
		if c := cmp.Compare(len(b.Files), len(a.Files)); c != 0 {
			return c
		}
		return cmp.Compare(a.Files[0], b.Files[0])
	})
	for i := range result {
		result[i].ID = i + 1
	}
	return result
}
