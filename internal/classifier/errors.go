package classifier

import "fmt"

// TrainingError is a fatal failure while preparing data for, fitting or
// evaluating the network. Stage names the step that failed.
type TrainingError struct {
	Stage string
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("classifier %s failed: %v", e.Stage, e.Err)
}

func (e *TrainingError) Unwrap() error {
	return e.Err
}
