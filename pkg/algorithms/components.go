package algorithms

import (
	"container/list"
	"sort"
)

// Island is one connected component of the fabric graph.
type Island struct {
	ID    int      `json:"id"`
	Ports []string `json:"ports"`
}

// Islands partitions the given ports into connected components. Ports with
// no edges form singleton islands. Islands are ordered by their smallest
// WWPN and list their ports sorted.
func Islands(topo Topology, ports []string) []Island {
	sorted := append([]string(nil), ports...)
	sort.Strings(sorted)

	visited := make(map[string]bool, len(sorted))
	var islands []Island

	for _, start := range sorted {
		if visited[start] {
			continue
		}

		island := Island{ID: len(islands)}
		queue := list.New()
		queue.PushBack(start)
		visited[start] = true

		for queue.Len() > 0 {
			id := queue.Remove(queue.Front()).(string)
			island.Ports = append(island.Ports, id)

			for _, neighbor := range topo.Neighbors(id) {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue.PushBack(neighbor)
				}
			}
		}

		sort.Strings(island.Ports)
		islands = append(islands, island)
	}
	return islands
}
