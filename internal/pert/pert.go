// Package pert implements three-point (PERT) duration estimation and its
// aggregation across a sequence of tasks.
//
// Aggregation treats every input as statistically independent: expected
// values and variances are summed and no covariance is modelled. Correlated
// durations are outside what this package represents.
package pert

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInvalidEstimate is returned when an estimate has a negative or
	// non-finite component.
	ErrInvalidEstimate = errors.New("invalid estimate")
	// ErrInvalidEstimateOrdering is returned when an estimate violates
	// optimistic <= most likely <= pessimistic.
	ErrInvalidEstimateOrdering = errors.New("invalid estimate ordering")
	// ErrUnknownTask is returned by AggregatePath for an id with no result.
	ErrUnknownTask = errors.New("unknown task")
)

// Estimate is a three-point duration estimate.
type Estimate struct {
	Optimistic  float64 `json:"optimistic" toml:"o" yaml:"o"`
	MostLikely  float64 `json:"most_likely" toml:"m" yaml:"m"`
	Pessimistic float64 `json:"pessimistic" toml:"p" yaml:"p"`
}

// Interval is a closed range [Low, High].
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Result is the PERT outcome for one estimate or an aggregate.
type Result struct {
	Expected     float64  `json:"expected"`
	Variance     float64  `json:"variance"`
	StdDev       float64  `json:"std_dev"`
	Confidence68 Interval `json:"confidence_68"`
	Confidence95 Interval `json:"confidence_95"`
}

// Validate checks the non-negativity and ordering invariants.
func (e Estimate) Validate() error {
	for _, v := range []float64{e.Optimistic, e.MostLikely, e.Pessimistic} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: (%g, %g, %g) has a negative or non-finite component",
				ErrInvalidEstimate, e.Optimistic, e.MostLikely, e.Pessimistic)
		}
	}
	if e.Optimistic > e.MostLikely || e.MostLikely > e.Pessimistic {
		return fmt.Errorf("%w: want O <= M <= P, got (%g, %g, %g)",
			ErrInvalidEstimateOrdering, e.Optimistic, e.MostLikely, e.Pessimistic)
	}
	return nil
}

// Calculate returns expected = (O+4M+P)/6 and variance = ((P-O)/6)^2 with
// one- and two-sigma confidence bands.
func Calculate(e Estimate) (Result, error) {
	if err := e.Validate(); err != nil {
		return Result{}, err
	}
	expected := (e.Optimistic + 4*e.MostLikely + e.Pessimistic) / 6
	spread := (e.Pessimistic - e.Optimistic) / 6
	return fromMoments(expected, spread*spread), nil
}

// Aggregate sums expected values and variances across results. Order does
// not matter, and zero results yield the zero Result.
func Aggregate(results ...Result) Result {
	var expected, variance float64
	for _, r := range results {
		expected += r.Expected
		variance += r.Variance
	}
	return fromMoments(expected, variance)
}

// AggregatePath aggregates the results of the tasks along path, e.g. a
// critical chain. Every id must have a result.
func AggregatePath(results map[string]Result, path []string) (Result, error) {
	picked := make([]Result, 0, len(path))
	for _, id := range path {
		r, ok := results[id]
		if !ok {
			return Result{}, fmt.Errorf("%w: %q has no PERT result", ErrUnknownTask, id)
		}
		picked = append(picked, r)
	}
	return Aggregate(picked...), nil
}

// CalculateAll runs Calculate over every estimate. The first invalid
// estimate, in id order, aborts the run.
func CalculateAll(estimates map[string]Estimate) (map[string]Result, error) {
	ids := make([]string, 0, len(estimates))
	for id := range estimates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]Result, len(estimates))
	for _, id := range ids {
		r, err := Calculate(estimates[id])
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", id, err)
		}
		out[id] = r
	}
	return out, nil
}

// ExpectedDurations converts estimates into expected durations suitable
// for feeding the CPM engine.
func ExpectedDurations(estimates map[string]Estimate) (map[string]float64, error) {
	results, err := CalculateAll(estimates)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(results))
	for id, r := range results {
		out[id] = r.Expected
	}
	return out, nil
}

// Probability returns the normal-approximation probability that the work
// completes within target. A zero-variance result is a step function.
func (r Result) Probability(target float64) float64 {
	if r.StdDev == 0 {
		if target >= r.Expected {
			return 1
		}
		return 0
	}
	z := (target - r.Expected) / r.StdDev
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

func fromMoments(expected, variance float64) Result {
	sd := math.Sqrt(variance)
	return Result{
		Expected:     expected,
		Variance:     variance,
		StdDev:       sd,
		Confidence68: Interval{Low: expected - sd, High: expected + sd},
		Confidence95: Interval{Low: expected - 2*sd, High: expected + 2*sd},
	}
}
