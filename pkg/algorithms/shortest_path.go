package algorithms

import (
	"container/list"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
)

// Topology is the read-only view the path algorithms traverse.
// *snapshot.Snapshot satisfies it.
type Topology interface {
	// Port resolves an identifier (case-insensitive) to its registered port.
	Port(id string) (fabric.Port, error)
	// Neighbors returns the sorted adjacency of a registered WWPN.
	Neighbors(wwpn string) []string
}

// Path is the result of a path query. Found is false when the endpoints
// are not connected through the fabric; that is an outcome, not an error.
type Path struct {
	Hops  []string `json:"hops"`
	Found bool     `json:"found"`
}

// Len returns the number of edges on the path.
func (p Path) Len() int {
	if len(p.Hops) == 0 {
		return 0
	}
	return len(p.Hops) - 1
}

// FindPath returns a minimum-edge path between two endpoint ports using
// breadth-first search. Neighbors are expanded in lexicographic WWPN
// order, so among several shortest paths the one whose hops sort first at
// each layer is returned.
//
// Errors: fabric.ErrNotFound for unknown ids, fabric.ErrInvalidEndpoint
// when either port is a switch port.
func FindPath(topo Topology, sourceID, destID string) (Path, error) {
	src, err := endpoint(topo, sourceID)
	if err != nil {
		return Path{}, err
	}
	dst, err := endpoint(topo, destID)
	if err != nil {
		return Path{}, err
	}

	if src.WWPN == dst.WWPN {
		return Path{Hops: []string{src.WWPN}, Found: true}, nil
	}

	parent := map[string]string{src.WWPN: src.WWPN}
	queue := list.New()
	queue.PushBack(src.WWPN)

	for queue.Len() > 0 {
		// Process one layer
		levelSize := queue.Len()
		for i := 0; i < levelSize; i++ {
			current := queue.Remove(queue.Front()).(string)

			for _, neighbor := range topo.Neighbors(current) {
				if _, seen := parent[neighbor]; seen {
					continue
				}
				parent[neighbor] = current
				if neighbor == dst.WWPN {
					return Path{Hops: reconstructPath(parent, dst.WWPN), Found: true}, nil
				}
				queue.PushBack(neighbor)
			}
		}
	}

	return Path{Found: false}, nil
}

func endpoint(topo Topology, id string) (fabric.Port, error) {
	p, err := topo.Port(id)
	if err != nil {
		return fabric.Port{}, fabric.PortNotFoundError("find_path", id)
	}
	if !p.IsEndpoint() {
		return fabric.Port{}, fabric.InvalidEndpointError(p.WWPN, p.Role)
	}
	return p, nil
}

// reconstructPath walks parent pointers from end back to the root.
func reconstructPath(parent map[string]string, end string) []string {
	path := make([]string, 0)
	node := end
	for node != parent[node] {
		path = append(path, node)
		node = parent[node]
	}
	path = append(path, node)

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Distances returns the hop distance from sourceID to every port reachable
// from it, including the source at distance 0. Any port role may be used
// as the source.
func Distances(topo Topology, sourceID string) (map[string]int, error) {
	src, err := topo.Port(sourceID)
	if err != nil {
		return nil, fabric.PortNotFoundError("distances", sourceID)
	}

	distances := map[string]int{src.WWPN: 0}
	queue := list.New()
	queue.PushBack(src.WWPN)

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)
		currentDist := distances[current]

		for _, neighbor := range topo.Neighbors(current) {
			if _, visited := distances[neighbor]; !visited {
				distances[neighbor] = currentDist + 1
				queue.PushBack(neighbor)
			}
		}
	}

	return distances, nil
}
