package report

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"cvmigrate/internal/cvxml"
	"cvmigrate/internal/domain"
	"cvmigrate/internal/graph"
	"cvmigrate/internal/remap"
)

// ViewReport is the classification outcome for one view file. Err isolates
// a per-view failure: one unparseable view never aborts the batch.
type ViewReport struct {
	Path    string
	View    string
	Results []domain.TableMappingResult
	Events  domain.Events
	Err     error
}

// Batch classifies many view files concurrently. Each worker builds its own
// graph, so nothing mutable is shared beyond the read-only mapping table.
type Batch struct {
	Classifier *remap.Classifier
	Workers    int
	Logger     *slog.Logger
}

// Run processes the given view files and returns one report per path, in
// input order.
func (b *Batch) Run(ctx context.Context, paths []string) []ViewReport {
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reports := make([]ViewReport, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range paths {
		i, p := i, p
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				reports[i] = ViewReport{Path: p, Err: err}
				return nil
			}
			reports[i] = b.one(p)
			if reports[i].Err != nil {
				logger.Warn("view classification failed", "path", p, "error", reports[i].Err)
			}
			return nil
		})
	}
	eg.Wait() //nolint:errcheck // workers never return errors, failures live in reports
	return reports
}

func (b *Batch) one(path string) ViewReport {
	rep := ViewReport{Path: path}
	view, err := cvxml.ParseFile(path)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.View = view.ID
	g, err := graph.Builder{}.Build(view)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.Results, rep.Events = b.Classifier.Classify(remap.UsageFromGraph(g))
	return rep
}

// DiscoverViews walks a directory tree collecting .calculationview files in
// lexical order.
func DiscoverViews(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".calculationview") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
