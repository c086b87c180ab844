package dag

import (
	"strings"
	"testing"
)

func TestComputeTracks(t *testing.T) {
	t.Parallel()

	t.Run("two independent chains and a loner", func(t *testing.T) {
		t.Parallel()
		g := mustBuild(t, []string{"a", "b", "c", "x", "y", "solo"}, []Edge{
			fs("a", "b"), fs("b", "c"),
			{From: "x", To: "y", Relation: StartToStart},
		})
		tracks := g.ComputeTracks()
		if len(tracks) != 3 {
			t.Fatalf("got %d tracks, want 3: %+v", len(tracks), tracks)
		}
		want := []string{"a,b,c", "x,y", "solo"}
		for i, tr := range tracks {
			if tr.ID != i {
				t.Errorf("track %d has ID %d", i, tr.ID)
			}
			if got := strings.Join(tr.TaskIDs, ","); got != want[i] {
				t.Errorf("track %d = %s, want %s", i, got, want[i])
			}
		}
	})

	t.Run("diamond is one track", func(t *testing.T) {
		t.Parallel()
		g := mustBuild(t, []string{"a", "b", "c", "d"}, []Edge{
			fs("a", "b"), fs("a", "c"), fs("b", "d"), fs("c", "d"),
		})
		tracks := g.ComputeTracks()
		if len(tracks) != 1 || len(tracks[0].TaskIDs) != 4 {
			t.Errorf("got %+v, want a single 4-task track", tracks)
		}
	})

	t.Run("empty graph", func(t *testing.T) {
		t.Parallel()
		if tracks := mustBuild(t, nil, nil).ComputeTracks(); tracks != nil {
			t.Errorf("got %v, want nil", tracks)
		}
	})
}

func TestUnionFind(t *testing.T) {
	t.Parallel()
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(3, 4)
	uf.union(1, 4)
	if uf.find(0) != uf.find(3) {
		t.Error("0 and 3 should share a set")
	}
	if uf.find(2) == uf.find(0) {
		t.Error("2 should stay a singleton")
	}
}
