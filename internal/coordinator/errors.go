package coordinator

import "fmt"

// CollaboratorError wraps a failure from one of the external
// collaborators (execution history, launcher, commenter). These are
// logged per row inside the tick loop and never crash the process.
type CollaboratorError struct {
	Op          string
	IssueNumber int
	Err         error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s for issue %d: %v", e.Op, e.IssueNumber, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
