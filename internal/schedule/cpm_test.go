package schedule

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/dag"
)

func task(id string, d float64) Task {
	return Task{ID: id, Duration: d}
}

func edge(from, to string, rel dag.Relation, lag float64) Dependency {
	return Dependency{From: from, To: to, Relation: rel, Lag: lag}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := calendar.ParseDate(s)
	require.NoError(t, err)
	return d
}

func assertTimes(t *testing.T, tr *TaskResult, es, ef, ls, lf float64, critical bool) {
	t.Helper()
	require.NotNil(t, tr)
	assert.InDelta(t, es, tr.ES, Epsilon, "%s ES", tr.TaskID)
	assert.InDelta(t, ef, tr.EF, Epsilon, "%s EF", tr.TaskID)
	assert.InDelta(t, ls, tr.LS, Epsilon, "%s LS", tr.TaskID)
	assert.InDelta(t, lf, tr.LF, Epsilon, "%s LF", tr.TaskID)
	assert.InDelta(t, ls-es, tr.Slack, Epsilon, "%s slack", tr.TaskID)
	assert.Equal(t, critical, tr.IsCritical, "%s critical", tr.TaskID)
}

func TestCompute_LinearChain(t *testing.T) {
	t.Parallel()
	res, err := Compute(
		[]Task{task("a", 3), task("b", 2), task("c", 4)},
		[]Dependency{edge("a", "b", dag.FinishToStart, 0), edge("b", "c", dag.FinishToStart, 0)},
		Options{},
	)
	require.NoError(t, err)

	assert.InDelta(t, 9, res.ProjectFinish, Epsilon)
	assert.Equal(t, []string{"a", "b", "c"}, res.Critical)
	assertTimes(t, res.Tasks["a"], 0, 3, 0, 3, true)
	assertTimes(t, res.Tasks["b"], 3, 5, 3, 5, true)
	assertTimes(t, res.Tasks["c"], 5, 9, 5, 9, true)
	assert.Nil(t, res.StartDate, "relative mode carries no dates")
}

func TestCompute_DiamondWithSlack(t *testing.T) {
	t.Parallel()
	// a(5) -> b(1) -> d(1)
	// a(5) -> c(10) -> d(1)
	res, err := Compute(
		[]Task{task("a", 5), task("b", 1), task("c", 10), task("d", 1)},
		[]Dependency{
			edge("a", "b", dag.FinishToStart, 0),
			edge("a", "c", dag.FinishToStart, 0),
			edge("b", "d", dag.FinishToStart, 0),
			edge("c", "d", dag.FinishToStart, 0),
		},
		Options{},
	)
	require.NoError(t, err)

	assert.InDelta(t, 16, res.ProjectFinish, Epsilon)
	assertTimes(t, res.Tasks["b"], 5, 6, 14, 15, false)
	assert.InDelta(t, 9, res.Tasks["b"].Slack, Epsilon)
	assert.Equal(t, []string{"a", "c", "d"}, res.Critical)
}

func TestCompute_RelationTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		durA   float64
		durB   float64
		rel    dag.Relation
		lag    float64
		finish float64
		a, b   [4]float64 // ES, EF, LS, LF
		critA  bool
		critB  bool
	}{
		{
			name: "finish to start with lag", durA: 5, durB: 3, rel: dag.FinishToStart, lag: 2,
			finish: 10, a: [4]float64{0, 5, 0, 5}, b: [4]float64{7, 10, 7, 10}, critA: true, critB: true,
		},
		{
			name: "finish to start with lead", durA: 5, durB: 3, rel: dag.FinishToStart, lag: -2,
			finish: 6, a: [4]float64{0, 5, 0, 5}, b: [4]float64{3, 6, 3, 6}, critA: true, critB: true,
		},
		{
			name: "start to start", durA: 5, durB: 3, rel: dag.StartToStart, lag: 2,
			finish: 5, a: [4]float64{0, 5, 0, 5}, b: [4]float64{2, 5, 2, 5}, critA: true, critB: true,
		},
		{
			name: "start to start leaves successor slack", durA: 6, durB: 1, rel: dag.StartToStart, lag: 1,
			finish: 6, a: [4]float64{0, 6, 0, 6}, b: [4]float64{1, 2, 5, 6}, critA: true, critB: false,
		},
		{
			name: "finish to finish", durA: 4, durB: 2, rel: dag.FinishToFinish, lag: 1,
			finish: 5, a: [4]float64{0, 4, 0, 4}, b: [4]float64{3, 5, 3, 5}, critA: true, critB: true,
		},
		{
			name: "start to finish clamps at project start", durA: 3, durB: 4, rel: dag.StartToFinish, lag: 2,
			finish: 4, a: [4]float64{0, 3, 1, 4}, b: [4]float64{0, 4, 0, 4}, critA: false, critB: true,
		},
		{
			name: "start to finish binding", durA: 3, durB: 1, rel: dag.StartToFinish, lag: 5,
			finish: 5, a: [4]float64{0, 3, 0, 3}, b: [4]float64{4, 5, 4, 5}, critA: true, critB: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := Compute(
				[]Task{task("a", tt.durA), task("b", tt.durB)},
				[]Dependency{edge("a", "b", tt.rel, tt.lag)},
				Options{},
			)
			require.NoError(t, err)
			assert.InDelta(t, tt.finish, res.ProjectFinish, Epsilon)
			assertTimes(t, res.Tasks["a"], tt.a[0], tt.a[1], tt.a[2], tt.a[3], tt.critA)
			assertTimes(t, res.Tasks["b"], tt.b[0], tt.b[1], tt.b[2], tt.b[3], tt.critB)
		})
	}
}

func TestCompute_ParallelEdgesTakeBindingBound(t *testing.T) {
	t.Parallel()
	// SS allows b to start at 0; FF forces b to finish no earlier than 4.
	res, err := Compute(
		[]Task{task("a", 4), task("b", 1)},
		[]Dependency{
			edge("a", "b", dag.StartToStart, 0),
			edge("a", "b", dag.FinishToFinish, 0),
		},
		Options{},
	)
	require.NoError(t, err)
	assertTimes(t, res.Tasks["b"], 3, 4, 3, 4, true)
	assertTimes(t, res.Tasks["a"], 0, 4, 0, 4, true)
}

func TestCompute_Errors(t *testing.T) {
	t.Parallel()

	t.Run("cycle yields no results", func(t *testing.T) {
		t.Parallel()
		res, err := Compute(
			[]Task{task("A", 1), task("B", 1), task("C", 1)},
			[]Dependency{
				edge("A", "B", dag.FinishToStart, 0),
				edge("B", "C", dag.FinishToStart, 0),
				edge("C", "A", dag.FinishToStart, 0),
			},
			Options{},
		)
		require.ErrorIs(t, err, ErrCyclicDependency)
		assert.Nil(t, res)
		var ce *dag.CycleError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, []string{"A", "B", "C", "A"}, ce.Path)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		res, err := Compute([]Task{task("a", 1)}, []Dependency{edge("a", "ghost", dag.FinishToStart, 0)}, Options{})
		require.ErrorIs(t, err, ErrUnknownTask)
		assert.Contains(t, err.Error(), "ghost")
		assert.Nil(t, res)
	})

	t.Run("negative duration", func(t *testing.T) {
		t.Parallel()
		res, err := Compute([]Task{task("a", 1), task("neg", -2)}, nil, Options{})
		require.ErrorIs(t, err, ErrInvalidDuration)
		assert.Contains(t, err.Error(), "neg")
		assert.Nil(t, res)
	})
}

func TestCompute_Empty(t *testing.T) {
	t.Parallel()
	res, err := Compute(nil, nil, Options{ProjectStart: day(t, "2024-01-01")})
	require.NoError(t, err)
	assert.Zero(t, res.ProjectFinish)
	assert.Empty(t, res.Critical)
	assert.Nil(t, res.FinishDate)
}

func TestCompute_Milestone(t *testing.T) {
	t.Parallel()
	res, err := Compute(
		[]Task{task("build", 3), task("release", 0)},
		[]Dependency{edge("build", "release", dag.FinishToStart, 0)},
		Options{},
	)
	require.NoError(t, err)
	assertTimes(t, res.Tasks["release"], 3, 3, 3, 3, true)
}

func TestCompute_Dates(t *testing.T) {
	t.Parallel()
	// Friday start: a occupies Fri+Mon, b occupies Tue.
	res, err := Compute(
		[]Task{task("a", 2), task("b", 1)},
		[]Dependency{edge("a", "b", dag.FinishToStart, 0)},
		Options{ProjectStart: day(t, "2024-01-05")},
	)
	require.NoError(t, err)

	require.NotNil(t, res.StartDate)
	require.NotNil(t, res.FinishDate)
	assert.Equal(t, day(t, "2024-01-05"), *res.StartDate)
	assert.Equal(t, day(t, "2024-01-09"), *res.FinishDate)

	a := res.Tasks["a"].Dates
	require.NotNil(t, a)
	assert.Equal(t, day(t, "2024-01-05"), a.EarlyStart)
	assert.Equal(t, day(t, "2024-01-08"), a.EarlyFinish)

	b := res.Tasks["b"].Dates
	require.NotNil(t, b)
	assert.Equal(t, day(t, "2024-01-09"), b.EarlyStart)
	assert.Equal(t, day(t, "2024-01-09"), b.LateFinish)
}

func TestCompute_WeekendProjectStartAligns(t *testing.T) {
	t.Parallel()
	res, err := Compute([]Task{task("a", 1)}, nil, Options{ProjectStart: day(t, "2024-01-06")})
	require.NoError(t, err)
	assert.Equal(t, day(t, "2024-01-08"), *res.StartDate)
	assert.Equal(t, day(t, "2024-01-08"), res.Tasks["a"].Dates.EarlyStart)
}

func TestCompute_FixedStart(t *testing.T) {
	t.Parallel()

	t.Run("root with fixed start", func(t *testing.T) {
		t.Parallel()
		pinned := day(t, "2024-01-03")
		res, err := Compute(
			[]Task{task("a", 1), {ID: "b", Duration: 1, Start: &pinned}},
			nil,
			Options{ProjectStart: day(t, "2024-01-01")},
		)
		require.NoError(t, err)
		assertTimes(t, res.Tasks["b"], 2, 3, 2, 3, true)
		assertTimes(t, res.Tasks["a"], 0, 1, 2, 3, false)
		assert.Equal(t, pinned, res.Tasks["b"].Dates.EarlyStart)
	})

	t.Run("anchor derived from earliest fixed start", func(t *testing.T) {
		t.Parallel()
		first, second := day(t, "2024-01-08"), day(t, "2024-01-10")
		res, err := Compute(
			[]Task{{ID: "a", Duration: 1, Start: &first}, {ID: "b", Duration: 1, Start: &second}},
			nil,
			Options{},
		)
		require.NoError(t, err)
		require.NotNil(t, res.StartDate)
		assert.Equal(t, first, *res.StartDate)
		assert.InDelta(t, 2, res.Tasks["b"].ES, Epsilon)
	})

	t.Run("fixed start acts as a floor behind predecessors", func(t *testing.T) {
		t.Parallel()
		pinned := day(t, "2024-01-02")
		res, err := Compute(
			[]Task{task("a", 3), {ID: "b", Duration: 1, Start: &pinned}},
			[]Dependency{edge("a", "b", dag.FinishToStart, 0)},
			Options{ProjectStart: day(t, "2024-01-01")},
		)
		require.NoError(t, err)
		assert.InDelta(t, 3, res.Tasks["b"].ES, Epsilon)
	})
}

func TestCriticalChains(t *testing.T) {
	t.Parallel()

	t.Run("two parallel zero-slack chains", func(t *testing.T) {
		t.Parallel()
		res, err := Compute(
			[]Task{task("a", 1), task("b", 2), task("c", 2), task("d", 1)},
			[]Dependency{
				edge("a", "b", dag.FinishToStart, 0),
				edge("a", "c", dag.FinishToStart, 0),
				edge("b", "d", dag.FinishToStart, 0),
				edge("c", "d", dag.FinishToStart, 0),
			},
			Options{},
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, res.CriticalTasks())
		assert.Equal(t, [][]string{{"a", "b", "d"}, {"a", "c", "d"}}, res.CriticalChains(MaxChains))
	})

	t.Run("disjoint critical tracks", func(t *testing.T) {
		t.Parallel()
		res, err := Compute(
			[]Task{task("x", 2), task("y", 2), task("p", 4)},
			[]Dependency{edge("x", "y", dag.FinishToStart, 0)},
			Options{},
		)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"p"}, {"x", "y"}}, res.CriticalChains(MaxChains))
		assert.Len(t, res.Tracks, 2)
	})

	t.Run("non-critical branch is skipped", func(t *testing.T) {
		t.Parallel()
		res, err := Compute(
			[]Task{task("a", 1), task("long", 5), task("short", 1), task("z", 1)},
			[]Dependency{
				edge("a", "long", dag.FinishToStart, 0),
				edge("a", "short", dag.FinishToStart, 0),
				edge("long", "z", dag.FinishToStart, 0),
				edge("short", "z", dag.FinishToStart, 0),
			},
			Options{},
		)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a", "long", "z"}}, res.CriticalChains(MaxChains))
	})
}

func TestApplyEstimates(t *testing.T) {
	t.Parallel()
	in := []Task{task("a", 1), task("b", 2)}
	out := ApplyEstimates(in, map[string]float64{"b": 3.5})
	assert.InDelta(t, 1, out[0].Duration, Epsilon)
	assert.InDelta(t, 3.5, out[1].Duration, Epsilon)
	assert.InDelta(t, 2, in[1].Duration, Epsilon, "input must not be mutated")
}

func TestComputeAll(t *testing.T) {
	t.Parallel()
	projects := []Project{
		{
			Name:         "ok",
			Tasks:        []Task{task("a", 2), task("b", 3)},
			Dependencies: []Dependency{edge("a", "b", dag.FinishToStart, 0)},
		},
		{
			Name:  "cyclic",
			Tasks: []Task{task("a", 1), task("b", 1)},
			Dependencies: []Dependency{
				edge("a", "b", dag.FinishToStart, 0),
				edge("b", "a", dag.FinishToStart, 0),
			},
		},
		{
			Name:  "dated",
			Tasks: []Task{task("solo", 1)},
			Start: day(t, "2024-01-01"),
		},
	}

	outcomes := ComputeAll(projects, Options{Workers: 2})
	require.Len(t, outcomes, 3)

	assert.Equal(t, "ok", outcomes[0].Name)
	require.NoError(t, outcomes[0].Err)
	assert.InDelta(t, 5, outcomes[0].Result.ProjectFinish, Epsilon)

	assert.Equal(t, "cyclic", outcomes[1].Name)
	assert.ErrorIs(t, outcomes[1].Err, ErrCyclicDependency)
	assert.Nil(t, outcomes[1].Result)

	require.NoError(t, outcomes[2].Err)
	require.NotNil(t, outcomes[2].Result.StartDate)
	assert.Equal(t, day(t, "2024-01-01"), *outcomes[2].Result.StartDate)
}

// randomProject builds an acyclic project by only linking lower-numbered
// tasks to higher-numbered ones.
func randomProject(rng *rand.Rand, n int) ([]Task, []Dependency) {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = task(fmt.Sprintf("t%02d", i), float64(rng.Intn(10))+rng.Float64())
	}
	var deps []Dependency
	for j := 1; j < n; j++ {
		for i := 0; i < j; i++ {
			if rng.Float64() < 0.25 {
				rel := dag.Relations[rng.Intn(len(dag.Relations))]
				lag := float64(rng.Intn(7) - 2)
				deps = append(deps, edge(tasks[i].ID, tasks[j].ID, rel, lag))
			}
		}
	}
	return tasks, deps
}

func TestCompute_Properties(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		tasks, deps := randomProject(rng, 2+rng.Intn(15))

		res, err := Compute(tasks, deps, Options{})
		require.NoError(t, err)

		require.NotEmpty(t, res.Critical, "round %d: non-empty graph must have a critical task", round)
		for _, id := range res.Critical {
			assert.InDelta(t, 0, res.Tasks[id].Slack, Epsilon, "round %d: critical %s", round, id)
		}
		for id, tr := range res.Tasks {
			assert.InDelta(t, tr.LS-tr.ES, tr.LF-tr.EF, Epsilon, "round %d: %s slack consistency", round, id)
			assert.GreaterOrEqual(t, tr.Slack, -Epsilon, "round %d: %s negative slack", round, id)
			assert.GreaterOrEqual(t, tr.ES, 0.0, "round %d: %s starts before project start", round, id)
			assert.LessOrEqual(t, tr.LF, res.ProjectFinish+Epsilon, "round %d: %s finishes late", round, id)
		}

		// Reordering the inputs must not change anything.
		shuffledTasks := append([]Task(nil), tasks...)
		rng.Shuffle(len(shuffledTasks), func(i, j int) {
			shuffledTasks[i], shuffledTasks[j] = shuffledTasks[j], shuffledTasks[i]
		})
		shuffledDeps := append([]Dependency(nil), deps...)
		rng.Shuffle(len(shuffledDeps), func(i, j int) {
			shuffledDeps[i], shuffledDeps[j] = shuffledDeps[j], shuffledDeps[i]
		})
		again, err := Compute(shuffledTasks, shuffledDeps, Options{})
		require.NoError(t, err)
		assert.Equal(t, res.ProjectFinish, again.ProjectFinish, "round %d: finish depends on input order", round)
		assert.Equal(t, res.Critical, again.Critical)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	t.Parallel()
	tasks, deps := randomProject(rand.New(rand.NewSource(7)), 20)

	first, err := Compute(tasks, deps, Options{})
	require.NoError(t, err)
	second, err := Compute(tasks, deps, Options{})
	require.NoError(t, err)

	for id, a := range first.Tasks {
		b := second.Tasks[id]
		// Exact equality on purpose: reruns must be bit-identical.
		assert.Equal(t, *a, *b, "task %s", id)
	}
	assert.Equal(t, first.Order, second.Order)
}
