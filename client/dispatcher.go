package client

import (
	"context"
	"errors"
	"sync"

	"rummage/db/searchdb"
	"rummage/logger"
)

// Searcher turns a query into ranked pairs. *Client is the real one; tests
// substitute their own.
type Searcher interface {
	Search(ctx context.Context, query string) ([]searchdb.Pair, error)
}

// Renderer owns the results area. The dispatcher fully replaces its
// contents on every search: a clear before the request goes out, another
// after the response parses, then one Append per pair in response order.
type Renderer interface {
	Clear()
	Append(pair searchdb.Pair)
}

// Dispatcher serializes searches. Each submitted search is chained
// strictly after the completion of the previous one: searches never run
// concurrently, are never cancelled by a later submission and are never
// deduplicated. The chain is an append-only sequence of done channels;
// the tail channel is the "current search" handle.
type Dispatcher struct {
	logger   logger.Logger
	searcher Searcher
	renderer Renderer

	mu   sync.Mutex
	tail chan struct{}

	errC chan error
}

const errorBufferSize = 16

func NewDispatcher(logger logger.Logger, searcher Searcher, renderer Renderer) (*Dispatcher, error) {
	if searcher == nil {
		return nil, errors.New("dispatcher needs a searcher")
	}
	if renderer == nil {
		return nil, errors.New("dispatcher needs a renderer")
	}

	// The chain starts already completed so the first search runs
	// immediately.
	tail := make(chan struct{})
	close(tail)

	return &Dispatcher{
		logger:   logger,
		searcher: searcher,
		renderer: renderer,
		tail:     tail,
		errC:     make(chan error, errorBufferSize),
	}, nil
}

// Submit chains a search for query after the currently pending ones. It
// returns a channel closed when this search (fetch and render) completes,
// successfully or not.
func (d *Dispatcher) Submit(ctx context.Context, query string) <-chan struct{} {
	d.mu.Lock()
	prev := d.tail
	done := make(chan struct{})
	d.tail = done
	d.mu.Unlock()

	go func() {
		defer close(done)

		select {
		case <-prev:
		case <-ctx.Done():
			d.report(ctx.Err())
			return
		}

		d.runSearch(ctx, query)
	}()

	return done
}

func (d *Dispatcher) runSearch(ctx context.Context, query string) {
	d.renderer.Clear()

	pairs, err := d.searcher.Search(ctx, query)
	if err != nil {
		// The results area stays cleared; the failure only surfaces on the
		// error channel. Later searches in the chain still run.
		d.report(err)
		return
	}

	d.renderer.Clear()
	for _, pair := range pairs {
		d.renderer.Append(pair)
	}
}

// Wait blocks until every search submitted so far has completed.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	tail := d.tail
	d.mu.Unlock()

	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Errors delivers failures of individual searches. Receiving is optional.
func (d *Dispatcher) Errors() <-chan error {
	return d.errC
}

func (d *Dispatcher) report(err error) {
	d.logger.Error("search failed", "err", err.Error())
	select {
	case d.errC <- err:
	default:
		d.logger.Warn("dropping search error, error channel is full", "err", err.Error())
	}
}
