package domain

import "fmt"

// ExhaustedError is the only error a caller of the orchestrator should
// ever observe: every primary source failed and the stale-cache pass
// found nothing either.
type ExhaustedError struct {
	DataType string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all data sources exhausted for %q", e.DataType)
}
