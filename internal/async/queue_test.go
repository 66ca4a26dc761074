package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edilcheck/compliance-pipeline/internal/pipeline"
)

type countingProcessor struct {
	mu      sync.Mutex
	seen    []string
	block   chan struct{}
	blockOn bool
}

func (p *countingProcessor) Process(_ context.Context, ev pipeline.UploadEvent) (pipeline.Report, error) {
	if p.blockOn {
		<-p.block
	}
	p.mu.Lock()
	p.seen = append(p.seen, ev.ObjectName)
	p.mu.Unlock()
	return pipeline.Report{}, nil
}

func (p *countingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func TestQueueProcessesAllJobsBeforeShutdown(t *testing.T) {
	proc := &countingProcessor{}
	q := NewQueue(proc, nil, WithWorkers(3), WithQueueSize(16))
	q.Start()

	for i := 0; i < 10; i++ {
		require.True(t, q.Enqueue(pipeline.UploadEvent{ObjectName: "docs/t/c/f.pdf"}))
	}
	q.Shutdown()

	assert.Equal(t, 10, proc.count())
}

func TestQueueRejectsWhenFull(t *testing.T) {
	proc := &countingProcessor{block: make(chan struct{}), blockOn: true}
	q := NewQueue(proc, nil, WithWorkers(1), WithQueueSize(1))
	q.Start()

	// first job occupies the worker, second fills the buffer
	require.True(t, q.Enqueue(pipeline.UploadEvent{ObjectName: "a"}))
	// give the worker time to pick up the first job
	require.Eventually(t, func() bool {
		return q.Enqueue(pipeline.UploadEvent{ObjectName: "b"})
	}, time.Second, 5*time.Millisecond)

	assert.False(t, q.Enqueue(pipeline.UploadEvent{ObjectName: "c"}))

	close(proc.block)
	q.Shutdown()
}

func TestQueueProcessTimeoutBoundsJobs(t *testing.T) {
	done := make(chan struct{})
	q := NewQueue(processorFunc(func(ctx context.Context, _ pipeline.UploadEvent) (pipeline.Report, error) {
		defer close(done)
		<-ctx.Done()
		return pipeline.Report{}, ctx.Err()
	}), nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond))
	q.Start()

	q.Enqueue(pipeline.UploadEvent{ObjectName: "slow"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not canceled by the process timeout")
	}
	q.Shutdown()
}

type processorFunc func(ctx context.Context, ev pipeline.UploadEvent) (pipeline.Report, error)

func (f processorFunc) Process(ctx context.Context, ev pipeline.UploadEvent) (pipeline.Report, error) {
	return f(ctx, ev)
}
