package dag

import "sort"

// Track is a weakly connected component of the graph. Tasks in different
// tracks share no dependency in either direction, so each track is an
// independent sub-project.
type Track struct {
	// ID is assigned after sorting, starting at 0.
	ID int `json:"id"`

	// TaskIDs lists the track's tasks in global topological order.
	TaskIDs []string `json:"task_ids"`
}

// ComputeTracks partitions the graph into independent tracks using
// union-find over the edge set. Tracks are sorted by size descending, then
// by their first task id.
func (g *Graph) ComputeTracks() []Track {
	if len(g.order) == 0 {
		return nil
	}

	pos := make(map[string]int, len(g.order))
	for i, id := range g.order {
		pos[id] = i
	}

	uf := newUnionFind(len(g.order))
	for from, edges := range g.out {
		for _, e := range edges {
			uf.union(pos[from], pos[e.To])
		}
	}

	// Walking the topological order keeps members ordered within a track.
	byRoot := make(map[int][]string)
	var roots []int
	for i, id := range g.order {
		r := uf.find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], id)
	}

	tracks := make([]Track, 0, len(roots))
	for _, r := range roots {
		tracks = append(tracks, Track{TaskIDs: byRoot[r]})
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		if len(tracks[i].TaskIDs) != len(tracks[j].TaskIDs) {
			return len(tracks[i].TaskIDs) > len(tracks[j].TaskIDs)
		}
		return tracks[i].TaskIDs[0] < tracks[j].TaskIDs[0]
	})
	for i := range tracks {
		tracks[i].ID = i
	}
	return tracks
}
