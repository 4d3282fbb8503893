// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/listsearch/pkg/types"
)

// maxParallelSources bounds concurrent sources when parallel harvesting is on.
const maxParallelSources = 4

// Harvest runs the matching adapter for every source of req and returns one
// result per source, in req.Sources order regardless of completion order.
// A failing source never stops the others. Harvest itself fails only for an
// invalid request or an unknown source kind, before any fetch happens.
func Harvest(ctx context.Context, req types.SearchRequest, deps Deps, parallel bool) ([]types.SourceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adapters := make([]Adapter, len(req.Sources))
	for i, src := range req.Sources {
		a, err := NewAdapter(src.Kind, deps)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src, err)
		}
		adapters[i] = a
	}

	results := make([]types.SourceResult, len(req.Sources))
	run := func(i int) {
		src := req.Sources[i]
		deps.logger().Info("searching", "source", src.Kind, "list", src.List, "from", BaseURL(src))

		records, err := adapters[i].FetchRecords(ctx, req, src)
		if err != nil {
			deps.logger().Warn("source aborted", "source", src.String(), "records", len(records), "error", err)
		}
		results[i] = types.SourceResult{Source: src, Records: records, Err: err}
	}

	if !parallel {
		for i := range adapters {
			run(i)
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(maxParallelSources)
	for i := range adapters {
		i := i
		g.Go(func() error {
			run(i)
			return nil
		})
	}
	g.Wait()
	return results, nil
}
