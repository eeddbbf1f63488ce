package tf

// frameID is an interned frame name. Handles are dense and assigned in
// first-seen order, so they double as indexes into FrameGraph slices.
type frameID uint32

// edgeKey identifies one directed relationship parent -> child.
type edgeKey struct {
	parent frameID
	child  frameID
}

// FrameGraph indexes which frames are directly related. It is used only to
// discover paths; sample data lives in the EdgeTimeSeries owned by Buffer.
//
// FrameGraph is not safe for concurrent use.
type FrameGraph struct {
	ids   map[string]frameID
	names []string
	adj   [][]frameID
	edges map[edgeKey]struct{}
}

// NewFrameGraph returns an empty graph.
func NewFrameGraph() *FrameGraph {
	return &FrameGraph{
		ids:   make(map[string]frameID),
		edges: make(map[edgeKey]struct{}),
	}
}

func (g *FrameGraph) intern(name string) frameID {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := frameID(len(g.names))
	g.ids[name] = id
	g.names = append(g.names, name)
	g.adj = append(g.adj, nil)
	return id
}

func (g *FrameGraph) id(name string) (frameID, bool) {
	id, ok := g.ids[name]
	return id, ok
}

// RecordEdge ensures child is among parent's neighbors. Recording an edge
// twice is a no-op.
func (g *FrameGraph) RecordEdge(parent, child string) {
	g.recordEdge(edgeKey{parent: g.intern(parent), child: g.intern(child)})
}

// recordEdge reports whether the edge was new.
func (g *FrameGraph) recordEdge(k edgeKey) bool {
	if _, ok := g.edges[k]; ok {
		return false
	}
	g.edges[k] = struct{}{}
	g.adj[k.parent] = append(g.adj[k.parent], k.child)
	return true
}

// HasEdge reports whether parent -> child has been recorded.
func (g *FrameGraph) HasEdge(parent, child string) bool {
	p, ok := g.id(parent)
	if !ok {
		return false
	}
	c, ok := g.id(child)
	if !ok {
		return false
	}
	_, ok = g.edges[edgeKey{parent: p, child: c}]
	return ok
}

// Neighbors returns the frames directly reachable from frame, in the order
// their edges were first recorded. Unknown frames have no neighbors.
func (g *FrameGraph) Neighbors(frame string) []string {
	id, ok := g.id(frame)
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[id]))
	for i, n := range g.adj[id] {
		out[i] = g.names[n]
	}
	return out
}

// Frames returns every known frame in first-seen order.
func (g *FrameGraph) Frames() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// FindPath returns the frames visited walking from -> to, excluding from
// and ending with to. It fails with ErrCouldNotFindTransform when to is not
// reachable. A frame is always reachable from itself via the empty path.
func (g *FrameGraph) FindPath(from, to string) ([]string, error) {
	if from == to {
		return []string{}, nil
	}
	src, ok := g.id(from)
	if !ok {
		return nil, ErrCouldNotFindTransform
	}
	dst, ok := g.id(to)
	if !ok {
		return nil, ErrCouldNotFindTransform
	}
	path, ok := g.findPath(src, dst)
	if !ok {
		return nil, ErrCouldNotFindTransform
	}
	out := make([]string, len(path))
	for i, id := range path {
		out[i] = g.names[id]
	}
	return out, nil
}

// findPath is a breadth-first search from src. The visited set keeps it
// finite on cyclic graphs; results on such graphs are whatever path BFS
// happens to reach first.
func (g *FrameGraph) findPath(src, dst frameID) ([]frameID, bool) {
	if src == dst {
		return nil, true
	}
	visited := make([]bool, len(g.names))
	parent := make([]frameID, len(g.names))
	visited[src] = true
	queue := []frameID{src}

	found := false
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			found = true
			break
		}
		for _, n := range g.adj[cur] {
			if visited[n] {
				continue
			}
			visited[n] = true
			parent[n] = cur
			queue = append(queue, n)
		}
	}
	if !found {
		return nil, false
	}

	var path []frameID
	for cur := dst; cur != src; cur = parent[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

// HasCycle reports whether the recorded relationships contain a loop when
// each relationship and its inverse are treated as one undirected link.
// Ingestion never calls it; callers that need an acyclic tree can check
// after ingesting.
func (g *FrameGraph) HasCycle() bool {
	root := make([]frameID, len(g.names))
	for i := range root {
		root[i] = frameID(i)
	}
	find := func(x frameID) frameID {
		for root[x] != x {
			root[x] = root[root[x]]
			x = root[x]
		}
		return x
	}

	seen := make(map[edgeKey]struct{}, len(g.edges)/2)
	for k := range g.edges {
		if k.parent == k.child {
			return true
		}
		link := k
		if link.parent > link.child {
			link = edgeKey{parent: k.child, child: k.parent}
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}

		a, b := find(link.parent), find(link.child)
		if a == b {
			return true
		}
		root[a] = b
	}
	return false
}
