package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// ForEach calls handler for every index in [0, n) with at most limit calls in
// flight. A limit below 2 runs handlers sequentially in index order on the
// calling goroutine.
//
// Behavior:
//   - An error from one handler never stops its siblings
//   - Panics are recovered, logged with their stack and returned as errors
//   - All errors are aggregated into a *multierror.Error
func ForEach(ctx context.Context, n, limit int, handler func(ctx context.Context, i int) error) error {
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	if limit < 2 {
		for i := 0; i < n; i++ {
			record(safeCall(ctx, i, handler))
		}
		return errs.ErrorOrNil()
	}

	var eg errgroup.Group
	eg.SetLimit(limit)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			record(safeCall(ctx, i, handler))
			return nil
		})
	}
	_ = eg.Wait()

	return errs.ErrorOrNil()
}

func safeCall(ctx context.Context, i int, handler func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			ctxlog.From(ctx).Error("panic in handler",
				"index", i,
				"recover", r,
				"stack", string(stack))
			err = goerr.New("panic in handler", goerr.V("index", i), goerr.V("recover", r))
		}
	}()

	return handler(ctx, i)
}
