package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

// Result pairs an input with the value or error mapFunc produced for it.
// A failing input never affects the others.
type Result[E, D any] struct {
	In  E
	Out D
	Err error
}

// Map runs mapFunc over the input with at most limit calls in flight and
// yields the results in completion order. Map is context aware, a canceled
// context stops feeding new inputs and ends the iteration.
//
//	for res := range parallel.NewMap(ctx, 4, resolve).Iter(slices.Values(names)) {}
type Map[E, D any] struct {
	parentCtx    context.Context
	cancelParent context.CancelFunc
	g            *errgroup.Group
	mapped       chan Result[E, D]
	mapFunc      func(context.Context, E) (D, error)
}

func NewMap[E, D any](parentCtx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	if limit < 1 {
		limit = 1
	}
	parentCtx, cancelParent := context.WithCancel(parentCtx)
	g := new(errgroup.Group)
	// one extra slot for the feeding goroutine
	g.SetLimit(limit + 1)

	return &Map[E, D]{
		parentCtx:    parentCtx,
		cancelParent: cancelParent,
		g:            g,
		mapped:       make(chan Result[E, D], limit),
		mapFunc:      mapFunc,
	}
}

func (s *Map[E, D]) goWorkers(seq iter.Seq[E]) {
	s.g.Go(func() error {
		for entry := range seq {
			if s.parentCtx.Err() != nil {
				return nil
			}
			s.g.Go(func() error {
				d, err := s.mapFunc(s.parentCtx, entry)
				select {
				case <-s.parentCtx.Done():
				case s.mapped <- Result[E, D]{In: entry, Out: d, Err: err}:
				}
				return nil
			})
		}
		return nil
	})
}

// Iter can be consumed once.
func (s *Map[E, D]) Iter(seq iter.Seq[E]) iter.Seq[Result[E, D]] {
	return func(yield func(Result[E, D]) bool) {
		defer s.cancelParent()
		s.goWorkers(seq)

		go func() {
			_ = s.g.Wait()
			close(s.mapped)
		}()

		for r := range s.mapped {
			if s.parentCtx.Err() != nil {
				return
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Collect drains Iter into a slice.
func (s *Map[E, D]) Collect(seq iter.Seq[E]) []Result[E, D] {
	var ret []Result[E, D]
	for r := range s.Iter(seq) {
		ret = append(ret, r)
	}
	return ret
}
