// Package resultwriter decouples the producers of findings from the single
// goroutine that persists them.
//
// A Pipeline owns a bounded queue and one consumer goroutine. The consumer is
// started on the first Consume, so a run with no findings never starts it.
// A full queue blocks producers. Close stops intake, drains the queue and
// joins the consumer. A failing item is logged and skipped; cancellation of
// the pipeline context stops the consumer and is reported by Close.
package resultwriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/qodana/pkg/observability"
)

// DefaultCapacity is the default queue capacity.
const DefaultCapacity = 1000

// ErrWriterClosed is returned by Consume once Close has started.
var ErrWriterClosed = errors.New("result writer is closed")

// Handler persists a single item.
type Handler[T any] func(ctx context.Context, item T) error

// Options configure a Pipeline.
type Options struct {
	// Name labels log records and metrics.
	Name string

	// Capacity bounds the queue. Zero means DefaultCapacity.
	Capacity int

	// Logger receives per-item failures. Nil discards them.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *observability.WriterMetrics
}

// Pipeline is a bounded single-consumer queue.
type Pipeline[T any] struct {
	name    string
	handle  Handler[T]
	logger  *slog.Logger
	metrics *observability.WriterMetrics

	items  chan T
	ctx    context.Context // consumer scope
	cancel context.CancelFunc

	startOnce sync.Once
	group     *errgroup.Group
	groupCtx  context.Context // done once the consumer fails

	// mu orders sends against closing the queue.
	mu      sync.RWMutex
	closed  bool
	started atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// New creates a pipeline whose consumer runs under ctx.
func New[T any](ctx context.Context, handle Handler[T], opts Options) *Pipeline[T] {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	pctx, cancel := context.WithCancel(ctx)

	return &Pipeline[T]{
		name:    opts.Name,
		handle:  handle,
		logger:  logger.With("writer", opts.Name),
		metrics: opts.Metrics,
		items:   make(chan T, capacity),
		ctx:     pctx,
		cancel:  cancel,
	}
}

// Started reports whether the consumer has been started.
func (p *Pipeline[T]) Started() bool {
	return p.started.Load()
}

func (p *Pipeline[T]) start() {
	p.startOnce.Do(func() {
		p.group, p.groupCtx = errgroup.WithContext(p.ctx)
		p.group.Go(p.run)
		p.started.Store(true)
	})
}

// Consume enqueues items in order, blocking while the queue is full.
func (p *Pipeline[T]) Consume(ctx context.Context, items ...T) error {
	if len(items) == 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrWriterClosed
	}

	p.start()

	for _, item := range items {
		select {
		case p.items <- item:
			p.metrics.Queued(ctx, p.name, 1)
		case <-ctx.Done():
			return fmt.Errorf("%s enqueue: %w", p.name, ctx.Err())
		case <-p.groupCtx.Done():
			return fmt.Errorf("%s enqueue: %w", p.name, context.Cause(p.groupCtx))
		}
	}

	return nil
}

func (p *Pipeline[T]) run() error {
	for {
		if err := p.ctx.Err(); err != nil {
			return fmt.Errorf("%s consumer: %w", p.name, err)
		}

		select {
		case <-p.ctx.Done():
			return fmt.Errorf("%s consumer: %w", p.name, p.ctx.Err())
		case item, ok := <-p.items:
			if !ok {
				return nil
			}

			p.metrics.Queued(p.ctx, p.name, -1)
			p.process(item)
		}
	}
}

func (p *Pipeline[T]) process(item T) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.Failed(p.ctx, p.name, 1)
			p.logger.ErrorContext(p.ctx, "writer item panicked", "panic", fmt.Sprint(r))
		}
	}()

	err := p.handle(p.ctx, item)
	if err != nil {
		p.metrics.Failed(p.ctx, p.name, 1)
		p.logger.WarnContext(p.ctx, "failed to persist item", "error", err)

		return
	}

	p.metrics.Consumed(p.ctx, p.name, 1)
}

// Close stops intake, drains the queue and waits for the consumer. If ctx
// ends first the consumer is cancelled and still joined. Close is idempotent
// and returns the same result on every call.
func (p *Pipeline[T]) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		started := p.started.Load()

		if started {
			close(p.items)
		}
		p.mu.Unlock()

		if !started {
			p.cancel()

			return
		}

		done := make(chan error, 1)

		go func() { done <- p.group.Wait() }()

		select {
		case err := <-done:
			p.closeErr = err
		case <-ctx.Done():
			p.cancel()
			p.closeErr = errors.Join(fmt.Errorf("%s close: %w", p.name, ctx.Err()), <-done)
		}

		p.cancel()
	})

	return p.closeErr
}
