package task

import (
	"fmt"
	"sort"
)

// TaskRef pairs a task id with its display title.
type TaskRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Graph is the canonical relation view over a task list. Blocking edges are
// stored once, directed: an edge (from, to) means "from blocks to". The
// blocked_by view is derived by query, so the two directions can never drift
// apart. Links are stored as their symmetric closure for display.
type Graph struct {
	blocks map[int64]map[int64]struct{}
	links  map[int64]map[int64]struct{}
}

// BuildGraph derives the relation graph from a task list. The canonical
// source for blocking edges is each task's own Blocking list; stale
// blocked_by entries without a matching inverse are ignored.
func BuildGraph(tasks []Task) *Graph {
	g := &Graph{
		blocks: make(map[int64]map[int64]struct{}),
		links:  make(map[int64]map[int64]struct{}),
	}
	for _, t := range tasks {
		for _, to := range t.Blocking {
			if to == t.ID {
				continue
			}
			addEdge(g.blocks, t.ID, to)
		}
		for _, other := range t.LinkedTasks {
			if other == t.ID {
				continue
			}
			addEdge(g.links, t.ID, other)
			addEdge(g.links, other, t.ID)
		}
	}
	return g
}

func addEdge(edges map[int64]map[int64]struct{}, from, to int64) {
	set, ok := edges[from]
	if !ok {
		set = make(map[int64]struct{})
		edges[from] = set
	}
	set[to] = struct{}{}
}

// Blocking returns the ids of tasks blocked by the given task.
func (g *Graph) Blocking(id int64) []int64 {
	return sortedKeys(g.blocks[id])
}

// BlockedBy returns the ids of tasks blocking the given task.
func (g *Graph) BlockedBy(id int64) []int64 {
	var blockers []int64
	for from, set := range g.blocks {
		if _, ok := set[id]; ok {
			blockers = append(blockers, from)
		}
	}
	sort.Slice(blockers, func(i, j int) bool { return blockers[i] < blockers[j] })
	return blockers
}

// Linked returns the ids linked to the given task, from either side.
func (g *Graph) Linked(id int64) []int64 {
	return sortedKeys(g.links[id])
}

// Blocks reports whether an edge (from blocks to) exists.
func (g *Graph) Blocks(from, to int64) bool {
	_, ok := g.blocks[from][to]
	return ok
}

func sortedKeys(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	keys := make([]int64, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Selectable returns the tasks that may legally be added to the given
// relation list of the current task: every task except the current one,
// minus tasks already present in existing, and minus (for the blocking kind)
// tasks whose own blocking list already contains the current task, which
// would create a redundant inverse edge. The result is sorted by title for
// determinism.
func Selectable(all []Task, currentID int64, kind RelationKind, existing []int64) []Task {
	existingSet := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		existingSet[id] = struct{}{}
	}

	var candidates []Task
	for _, t := range all {
		if t.ID == 0 || t.ID == currentID {
			continue
		}
		if _, ok := existingSet[t.ID]; ok {
			continue
		}
		if kind == RelationBlocking && currentID != 0 && contains(t.Blocking, currentID) {
			continue
		}
		candidates = append(candidates, t)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Title != candidates[j].Title {
			return candidates[i].Title < candidates[j].Title
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates
}

// DisplayNames maps relation ids to display refs. Ids missing from the
// loaded task set (stale or deleted references) get a synthetic label
// instead of an error.
func DisplayNames(ids []int64, all []Task) []TaskRef {
	byID := make(map[int64]string, len(all))
	for _, t := range all {
		byID[t.ID] = t.Title
	}

	refs := make([]TaskRef, 0, len(ids))
	for _, id := range ids {
		title, ok := byID[id]
		if !ok {
			title = fmt.Sprintf("Task #%d", id)
		}
		refs = append(refs, TaskRef{ID: id, Title: title})
	}
	return refs
}
