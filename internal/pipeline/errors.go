package pipeline

import "fmt"

const (
	StageDerive    = "derive"
	StageEmbed     = "embed"
	StageTrain     = "classifier"
	StageInfer     = "infer"
	StageSegment   = "segment"
	StageKeyphrase = "keyphrase"
	StageNormalize = "normalize"
	StageCluster   = "cluster"
	StageAggregate = "aggregate"
	StagePersist   = "persist"
)

// StageError aborts a run and names the stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
