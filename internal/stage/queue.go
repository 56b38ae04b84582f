package stage

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/xtding233/gacha-stage/internal/progression"
)

var (
	ErrQueueFull   = errors.New("stage queue full")
	ErrQueueClosed = errors.New("stage queue closed")
)

// Animator is anything that can put a batch on stage, or report it as text when it can't.
type Animator interface {
	AnimateBatch(ctx context.Context, userID string, batch progression.PullBatch) Report
	ReportText(ctx context.Context, userID string, batch progression.PullBatch) error
}

// Queue animates batches one at a time in arrival order, since every batch shares
// the same scene. A batch it cannot animate is reported as text instead, never dropped.
type Queue struct {
	animator Animator
	log      logrus.FieldLogger
	jobs     chan progression.PullBatch

	mu      sync.Mutex
	closed  bool
	stopped context.Context // the ctx Run ended with; set once closed
	text    sync.WaitGroup

	// OnReport, if set, receives every finished report on the worker goroutine.
	OnReport func(Report)
}

func NewQueue(animator Animator, size int, log logrus.FieldLogger) *Queue {
	if size <= 0 {
		size = 32
	}
	return &Queue{animator: animator, log: log, jobs: make(chan progression.PullBatch, size)}
}

// Enqueue never waits on the stage. When the queue is full the batch is reported as text in
// the background and ErrQueueFull is returned; once Run has ended it is reported right away,
// without delays between messages, and ErrQueueClosed is returned.
func (q *Queue) Enqueue(batch progression.PullBatch) error {
	q.mu.Lock()
	if q.closed {
		stopped := q.stopped
		q.mu.Unlock()
		q.reportText(stopped, batch, ErrQueueClosed)
		return ErrQueueClosed
	}
	defer q.mu.Unlock()
	select {
	case q.jobs <- batch:
		return nil
	default:
	}
	// Add happens under mu, before drain can start waiting
	q.text.Add(1)
	go func() {
		defer q.text.Done()
		q.reportText(context.Background(), batch, ErrQueueFull)
	}()
	return ErrQueueFull
}

// Run works the queue until ctx is done. A batch in flight when ctx ends is still torn down,
// and batches still waiting are reported as text before Run returns.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			q.drain(ctx)
			return
		case batch := <-q.jobs:
			rep := q.animator.AnimateBatch(ctx, batch.UserID, batch)
			q.log.WithFields(logrus.Fields{"user": batch.UserID, "batch": batch.ID, "groups": len(rep.Groups)}).Info("batch animated")
			if q.OnReport != nil {
				q.OnReport(rep)
			}
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	q.mu.Lock()
	q.closed, q.stopped = true, ctx
	q.mu.Unlock()
	for {
		select {
		case batch := <-q.jobs:
			q.reportText(ctx, batch, ctx.Err())
		default:
			q.text.Wait()
			return
		}
	}
}

func (q *Queue) reportText(ctx context.Context, batch progression.PullBatch, reason error) {
	log := q.log.WithFields(logrus.Fields{"user": batch.UserID, "batch": batch.ID})
	log.WithError(reason).Warn("batch not animated, reporting as text")
	if err := q.animator.ReportText(ctx, batch.UserID, batch); err != nil {
		log.WithError(err).Error("text report failed")
	}
}

// Len is the number of waiting batches.
func (q *Queue) Len() int { return len(q.jobs) }
