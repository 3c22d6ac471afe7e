package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/metrics"
	"github.com/stemsi/handout-viewer/internal/pdf"
)

const (
	DefaultRenderWorkers = 2
	RenderQueueSize      = 16
)

// ErrQueueClosed is returned for renders submitted after shutdown.
var ErrQueueClosed = errors.New("render queue stopped")

type renderJob struct {
	ctx    context.Context
	doc    pdf.Document
	result chan renderResult
}

type renderResult struct {
	out []byte
	err error
}

// RenderQueue caps concurrent PDF renders with a fixed set of workers.
// It satisfies pdf.Renderer so handlers never see the difference.
type RenderQueue struct {
	backend pdf.Renderer
	workers int
	jobs    chan renderJob
	done    chan struct{}
	log     zerolog.Logger
}

func NewRenderQueue(backend pdf.Renderer, workers int, log zerolog.Logger) *RenderQueue {
	if workers <= 0 {
		workers = DefaultRenderWorkers
	}
	return &RenderQueue{
		backend: backend,
		workers: workers,
		jobs:    make(chan renderJob, RenderQueueSize),
		done:    make(chan struct{}),
		log:     log.With().Str("component", "render_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

// Start runs the workers until ctx is cancelled. Jobs still queued at
// shutdown fail with ErrQueueClosed.
func (q *RenderQueue) Start(ctx context.Context) {
	q.log.Info().Int("workers", q.workers).Str("backend", q.backend.Name()).Msg("RenderQueue started")

	finished := make(chan struct{}, q.workers)
	for i := 0; i < q.workers; i++ {
		go func(id int) {
			q.loop(ctx, id)
			finished <- struct{}{}
		}(i)
	}

	<-ctx.Done()
	for i := 0; i < q.workers; i++ {
		<-finished
	}
	close(q.done)

	for {
		select {
		case job := <-q.jobs:
			job.result <- renderResult{err: ErrQueueClosed}
		default:
			q.log.Info().Msg("RenderQueue stopped")
			return
		}
	}
}

func (q *RenderQueue) loop(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.run(id, job)
		}
	}
}

func (q *RenderQueue) run(id int, job renderJob) {
	metrics.SetRenderQueueDepth(len(q.jobs))

	// The requester may have given up while the job waited.
	if err := job.ctx.Err(); err != nil {
		job.result <- renderResult{err: err}
		return
	}

	start := time.Now()
	out, err := q.backend.Render(job.ctx, job.doc)
	elapsed := time.Since(start)
	metrics.ObserveRender(elapsed)

	if err != nil {
		q.log.Warn().Err(err).Int("worker", id).Str("file", job.doc.Filename).Dur("took", elapsed).Msg("Render failed")
	} else {
		q.log.Debug().Int("worker", id).Str("file", job.doc.Filename).Int("bytes", len(out)).Dur("took", elapsed).Msg("Render finished")
	}
	job.result <- renderResult{out: out, err: err}
}

// ----------------------------------------------------------------
// pdf.Renderer
// ----------------------------------------------------------------

func (q *RenderQueue) Name() string { return q.backend.Name() }

func (q *RenderQueue) Available() error { return q.backend.Available() }

// Render enqueues doc and waits for a worker or for ctx to end.
func (q *RenderQueue) Render(ctx context.Context, doc pdf.Document) ([]byte, error) {
	if err := q.backend.Available(); err != nil {
		return nil, err
	}

	select {
	case <-q.done:
		return nil, ErrQueueClosed
	default:
	}

	job := renderJob{ctx: ctx, doc: doc, result: make(chan renderResult, 1)}
	select {
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case q.jobs <- job:
		metrics.SetRenderQueueDepth(len(q.jobs))
	}

	select {
	case res := <-job.result:
		return res.out, res.err
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the backend. Call it after Start has returned.
func (q *RenderQueue) Close() error {
	return q.backend.Close()
}
