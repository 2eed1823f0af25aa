package worker

import "context"

// Job is a unit of work executed by a pool worker
type Job func(ctx context.Context) error
