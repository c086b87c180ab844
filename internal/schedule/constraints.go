package schedule

import (
	"fmt"

	"github.com/papapumpkin/gantry/internal/dag"
)

// earliestStart returns the lower bound edge e places on its successor's
// early start, given the predecessor's forward-pass result and the
// successor's duration.
func earliestStart(e dag.Edge, pred *TaskResult, succDuration float64) (float64, error) {
	switch e.Relation {
	case dag.FinishToStart:
		return pred.EF + e.Lag, nil
	case dag.StartToStart:
		return pred.ES + e.Lag, nil
	case dag.FinishToFinish:
		return pred.EF + e.Lag - succDuration, nil
	case dag.StartToFinish:
		return pred.ES + e.Lag - succDuration, nil
	default:
		return 0, fmt.Errorf("%w: %d on %s → %s", dag.ErrUnknownRelation, int(e.Relation), e.From, e.To)
	}
}

// latestFinish returns the upper bound edge e places on its predecessor's
// late finish, given the successor's backward-pass result and the
// predecessor's duration. It mirrors earliestStart solved for the
// predecessor.
func latestFinish(e dag.Edge, succ *TaskResult, predDuration float64) (float64, error) {
	switch e.Relation {
	case dag.FinishToStart:
		return succ.LS - e.Lag, nil
	case dag.StartToStart:
		return succ.LS - e.Lag + predDuration, nil
	case dag.FinishToFinish:
		return succ.LF - e.Lag, nil
	case dag.StartToFinish:
		return succ.LF - e.Lag + predDuration, nil
	default:
		return 0, fmt.Errorf("%w: %d on %s → %s", dag.ErrUnknownRelation, int(e.Relation), e.From, e.To)
	}
}
