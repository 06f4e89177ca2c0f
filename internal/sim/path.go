package sim

import (
	"container/heap"
)

// WalkMap is a grid of cells that can or cannot be walked on.
type WalkMap interface {
	InBounds(x, z int) bool
	Walkable(x, z int) bool
}

// pathNode is a node of the A* search.
type pathNode struct {
	x, z   int
	g      float32 // cost from start
	h      float32 // estimated cost to goal
	f      float32
	parent *pathNode
	index  int // index in heap
}

type pathHeap []*pathNode

func (h pathHeap) Len() int           { return len(h) }
func (h pathHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h pathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pathHeap) Push(x any) {
	node := x.(*pathNode)
	node.index = len(*h)
	*h = append(*h, node)
}

func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[:n-1]
	return node
}

// 8-way neighbors; odd entries are diagonal.
var directions = [8][2]int{
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
}

const (
	straightCost = float32(1.0)
	diagonalCost = float32(1.414)
)

// PathFinder searches walk maps with A*.
type PathFinder struct {
	grid  WalkMap
	width int
	depth int
}

// NewPathFinder creates a pathfinder over a width x depth grid.
func NewPathFinder(grid WalkMap, width, depth int) *PathFinder {
	if grid == nil {
		return nil
	}
	return &PathFinder{grid: grid, width: width, depth: depth}
}

// FindPath returns the cells from start to goal inclusive, or nil if the
// goal cannot be reached. Diagonal moves may not cut blocked corners.
func (pf *PathFinder) FindPath(startX, startZ, goalX, goalZ int) [][2]int {
	if pf == nil {
		return nil
	}
	if !pf.grid.InBounds(startX, startZ) || !pf.grid.Walkable(goalX, goalZ) {
		return nil
	}

	open := &pathHeap{}
	heap.Init(open)
	closed := make(map[int]bool)
	nodes := make(map[int]*pathNode)

	start := &pathNode{x: startX, z: startZ, h: heuristic(startX, startZ, goalX, goalZ)}
	start.f = start.h
	heap.Push(open, start)
	nodes[pf.key(startX, startZ)] = start

	maxIterations := pf.width * pf.depth
	for iterations := 0; open.Len() > 0 && iterations < maxIterations; iterations++ {
		current := heap.Pop(open).(*pathNode)
		if current.x == goalX && current.z == goalZ {
			return reconstructPath(current)
		}
		closed[pf.key(current.x, current.z)] = true

		for i, dir := range directions {
			nx, nz := current.x+dir[0], current.z+dir[1]
			if !pf.grid.Walkable(nx, nz) || closed[pf.key(nx, nz)] {
				continue
			}

			cost := straightCost
			if i%2 == 1 {
				cost = diagonalCost
				if !pf.grid.Walkable(current.x+dir[0], current.z) ||
					!pf.grid.Walkable(current.x, current.z+dir[1]) {
					continue
				}
			}
			g := current.g + cost

			neighbor, exists := nodes[pf.key(nx, nz)]
			if !exists {
				neighbor = &pathNode{x: nx, z: nz, g: g, h: heuristic(nx, nz, goalX, goalZ), parent: current}
				neighbor.f = neighbor.g + neighbor.h
				nodes[pf.key(nx, nz)] = neighbor
				heap.Push(open, neighbor)
			} else if g < neighbor.g {
				neighbor.g = g
				neighbor.f = neighbor.g + neighbor.h
				neighbor.parent = current
				heap.Fix(open, neighbor.index)
			}
		}
	}
	return nil
}

func (pf *PathFinder) key(x, z int) int {
	return z*pf.width + x
}

// heuristic is the octile distance.
func heuristic(x1, z1, x2, z2 int) float32 {
	dx := abs(x2 - x1)
	dz := abs(z2 - z1)
	if dx < dz {
		return float32(dx)*diagonalCost + float32(dz-dx)
	}
	return float32(dz)*diagonalCost + float32(dx-dz)
}

func reconstructPath(node *pathNode) [][2]int {
	var path [][2]int
	for ; node != nil; node = node.parent {
		path = append(path, [2]int{node.x, node.z})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
