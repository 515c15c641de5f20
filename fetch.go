package sqlpager

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Fetch runs a whole paginated request: it loads the cursor of scope, compiles
// req, executes the page and the count query when the pager needs a total,
// reduces the rows and stores the cursor for the next request. Both queries run
// concurrently only when executor is a ConcurrentExecutor reporting so.
//
// A cursor given in req takes precedence over the stored one. store may be nil,
// the returned cursor then has to be handed back by the caller, e.g. as a
// RawPager token.
func Fetch(
	ctx context.Context,
	compiler *Compiler,
	executor Executor,
	store CursorStore,
	scope string,
	req Request,
) (*Paginator[Row], *Cursor, error) {
	if compiler == nil || executor == nil {
		return nil, nil, fmt.Errorf("cannot fetch: compiler and executor are required")
	}

	loaded := false
	if req.Cursor == nil && store != nil && req.Pager != nil && req.Pager.UseCursor() {
		cursor, err := store.Load(ctx, scope)
		if err != nil {
			compiler.logger.Warn("cannot load cursor", slog.String("scope", scope), slog.Any("error", err))
		}
		req.Cursor = cursor
		loaded = cursor != nil
	}

	plan, err := compiler.Compile(req)
	if err != nil {
		return nil, nil, err
	}

	var countQuery Query
	needTotal := plan.Pager != nil && plan.Pager.NeedTotal()
	if needTotal {
		if countQuery, err = compiler.CountQuery(req.SQL, req.Params); err != nil {
			return nil, nil, err
		}
	}

	var (
		rows  []Row
		total *int64
	)

	queryPage := func(ctx context.Context) error {
		var err error
		rows, err = executor.Query(ctx, plan.Query)
		return err
	}
	queryTotal := func(ctx context.Context) error {
		countRows, err := executor.Query(ctx, countQuery)
		if err != nil {
			return err
		}

		value, err := readTotal(countRows)
		if err != nil {
			return fmt.Errorf("cannot read total: %w", err)
		}
		total = &value

		return nil
	}

	switch {
	case !needTotal:
		err = queryPage(ctx)
	case isConcurrent(executor):
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error { return queryPage(egCtx) })
		eg.Go(func() error { return queryTotal(egCtx) })
		err = eg.Wait()
	default:
		if err = queryPage(ctx); err == nil {
			err = queryTotal(ctx)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	paginator, cursor, err := Paging(plan, rows, RowGetters(plan.Orderings), total)
	if err != nil {
		return nil, nil, err
	}

	if store != nil {
		switch {
		case cursor != nil:
			if err = store.Save(ctx, scope, cursor); err != nil {
				compiler.logger.Warn("cannot save cursor", slog.String("scope", scope), slog.Any("error", err))
			}
		case loaded && plan.Cursor == nil:
			// The stored cursor cannot serve this scope anymore.
			if err = store.Clear(ctx, scope); err != nil {
				compiler.logger.Warn("cannot clear cursor", slog.String("scope", scope), slog.Any("error", err))
			}
		}
	}

	return paginator, cursor, nil
}

func isConcurrent(executor Executor) bool {
	ce, ok := executor.(ConcurrentExecutor)
	return ok && ce.Concurrent()
}
