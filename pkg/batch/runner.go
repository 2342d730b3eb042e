package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/marcx/pkg/extract"
	"github.com/coolbeans/marcx/pkg/marc"
)

// RecordExtensions lists the file extensions LoadDirectory reads.
var RecordExtensions = []string{".txt", ".marc"}

// Runner extracts jobs concurrently with a shared pipeline.
type Runner struct {
	pipeline *extract.Pipeline
	config   Config
	logger   *zap.Logger
}

// NewRunner creates a Runner. A nil logger discards diagnostics.
func NewRunner(pipeline *extract.Pipeline, config Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Runner{pipeline: pipeline, config: config, logger: logger}
}

// Run extracts every job and returns results in job order. A record without
// an anchor fails only its own result. The returned error is non-nil only
// when ctx is cancelled; results of jobs that never started carry ctx's
// error.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	for i, job := range jobs {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(jobs); j++ {
				results[j] = failed(jobs[j], err)
			}
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = failed(job, err)
				return err
			}
			results[i] = r.Process(job)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return results, fmt.Errorf("batch cancelled: %w", err)
	}

	r.logger.Info("batch finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", r.config.Workers),
	)
	return results, nil
}

// Process extracts a single job.
func (r *Runner) Process(job Job) Result {
	rec, err := r.pipeline.Reconstruct(job.Text)
	if err != nil {
		r.logger.Warn("record skipped", zap.String("job", job.ID), zap.String("source", job.Source), zap.Error(err))
		return failed(job, err)
	}

	result := Result{
		ID:     job.ID,
		Source: job.Source,
		Record: r.pipeline.Extract(rec.Fields),
	}
	if r.config.Display {
		result.Display = marc.Format(rec)
	}
	r.logger.Debug("record extracted", zap.String("job", job.ID), zap.String("source", job.Source))
	return result
}

func failed(job Job, err error) Result {
	return Result{ID: job.ID, Source: job.Source, Record: extract.Blank(), Err: err}
}

// LoadDirectory reads every record file in dir, sorted by name. Files that
// cannot be read abort the load.
func LoadDirectory(dir string) ([]Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && IsRecordFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		job, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// LoadFile reads one record file into a job.
func LoadFile(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("reading record %s: %w", path, err)
	}
	return NewJob(path, string(data)), nil
}

// IsRecordFile reports whether name has one of RecordExtensions.
func IsRecordFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range RecordExtensions {
		if ext == want {
			return true
		}
	}
	return false
}
