package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkingPool_ExecutesSubmittedJobs(t *testing.T) {
	pool := NewWorkingPool(3, 10)
	ctx, cancel := context.WithCancel(context.Background())

	var managerWg sync.WaitGroup
	managerWg.Add(1)
	go pool.Start(ctx, &managerWg)

	var executed atomic.Int64
	var jobWg sync.WaitGroup
	for i := 0; i < 9; i++ {
		jobWg.Add(1)
		pool.SubmitJob(func(ctx context.Context) error {
			defer jobWg.Done()
			executed.Add(1)
			return nil
		})
	}

	jobWg.Wait()
	cancel()
	managerWg.Wait()

	assert.Equal(t, int64(9), executed.Load())
}

func TestWorkingPool_RecoversFromPanickingJob(t *testing.T) {
	pool := NewWorkingPool(1, 2)
	ctx, cancel := context.WithCancel(context.Background())

	var managerWg sync.WaitGroup
	managerWg.Add(1)
	go pool.Start(ctx, &managerWg)

	done := make(chan struct{})
	pool.SubmitJob(func(ctx context.Context) error {
		panic("boom")
	})
	pool.SubmitJob(func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
		// The worker survived the panic and kept processing
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic")
	}

	cancel()
	managerWg.Wait()
}
