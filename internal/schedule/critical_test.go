package schedule

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papapumpkin/gantry/internal/dag"
)

// layeredDiamond builds layers of two equal tasks, every task wired to both
// tasks of the next layer. Every task is critical and the number of
// distinct chains doubles with each layer.
func layeredDiamond(layers int) ([]Task, []Dependency) {
	var (
		tasks []Task
		deps  []Dependency
	)
	name := func(layer int, side string) string { return fmt.Sprintf("l%02d%s", layer, side) }
	for l := 0; l < layers; l++ {
		for _, side := range []string{"a", "b"} {
			tasks = append(tasks, task(name(l, side), 1))
			if l == 0 {
				continue
			}
			for _, prev := range []string{"a", "b"} {
				deps = append(deps, edge(name(l-1, prev), name(l, side), dag.FinishToStart, 0))
			}
		}
	}
	return tasks, deps
}

func TestCriticalChains_Bounded(t *testing.T) {
	t.Parallel()

	// 2^40 distinct chains; enumerating them all would never finish.
	tasks, deps := layeredDiamond(40)
	res, err := Compute(tasks, deps, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Critical, 80)
	assert.InDelta(t, 40, res.ProjectFinish, Epsilon)

	chains := res.CriticalChains(MaxChains)
	require.Len(t, chains, MaxChains)
	for _, c := range chains {
		assert.Len(t, c, 40)
	}
	assert.Equal(t, "l00a", chains[0][0])
	assert.Equal(t, "l39a", chains[0][39])
	assert.Equal(t, "l39b", chains[1][39])

	assert.Len(t, res.CriticalChains(1), 1)
	assert.Nil(t, res.CriticalChains(0))
}

func TestProjectFinish_PredecessorOutlastsSuccessor(t *testing.T) {
	t.Parallel()

	// b is the only sink but a runs past it; the project ends with a.
	res, err := Compute(
		[]Task{task("a", 10), task("b", 1)},
		[]Dependency{edge("a", "b", dag.StartToStart, 0)},
		Options{},
	)
	require.NoError(t, err)

	assert.InDelta(t, 10, res.ProjectFinish, Epsilon)
	assert.InDelta(t, 0, res.Tasks["a"].Slack, Epsilon)
	assert.InDelta(t, 9, res.Tasks["b"].Slack, Epsilon)
	assert.InDelta(t, 10, res.Tasks["b"].LF, Epsilon)
	assert.Equal(t, []string{"a"}, res.Critical)
}
