package linkage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"iclink/internal/features"
	"iclink/internal/logging"
	"iclink/internal/matching"
	"iclink/internal/roster"
	"iclink/internal/scanfile"
)

// Options tunes a Pipeline.
type Options struct {
	// Concurrency bounds parallel extraction. Values below 1 run sequentially.
	Concurrency               int
	BlankOutcomeOnEyeMismatch bool
}

// Pipeline links scan files to a roster index.
type Pipeline struct {
	extractor *features.Extractor
	matcher   *matching.Matcher
	index     *roster.Index
	validator *features.Validator
	logger    *slog.Logger
	opts      Options
}

// Matched is one linked scan with its match decision.
type Matched struct {
	File   string
	Vector *features.Vector
	Match  matching.Result
}

// Unmatched is a scan whose identity resolved to no roster row.
type Unmatched struct {
	File   string
	Record *features.ScanRecord
}

// Failed is a scan that could not be decoded or lacked an identity.
type Failed struct {
	File   string
	Reason string
}

// Result holds the tables produced by one Run. Slices are never nil.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Files lists the base names of every processed scan in run order.
	Files     []string
	Training  []*features.Vector
	Matched   []Matched
	Unmatched []Unmatched
	Failed    []Failed
}

// New returns a Pipeline. All collaborators are required except logger.
func New(extractor *features.Extractor, matcher *matching.Matcher, index *roster.Index, validator *features.Validator, logger *slog.Logger, opts Options) (*Pipeline, error) {
	if extractor == nil || matcher == nil || index == nil || validator == nil {
		return nil, errors.New("linkage: extractor, matcher, index, and validator are required")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		extractor: extractor,
		matcher:   matcher,
		index:     index,
		validator: validator,
		logger:    logging.NewComponentLogger(logger, "linkage"),
		opts:      opts,
	}, nil
}

// NewFromComponents builds a Pipeline from configured components.
func NewFromComponents(c *Components, index *roster.Index, logger *slog.Logger, opts Options) (*Pipeline, error) {
	if c == nil {
		return nil, errors.New("linkage: components are required")
	}
	return New(c.Extractor, c.Matcher, index, c.Validator, logger, opts)
}

type outcome struct {
	file   string
	record *features.ScanRecord
	match  matching.Result
	failed string
}

// Run processes paths. Unreadable files and cancellation abort the run;
// malformed or identity-less documents become Failed rows.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Files:     []string{},
		Training:  []*features.Vector{},
		Matched:   []Matched{},
		Unmatched: []Unmatched{},
		Failed:    []Failed{},
	}

	sorted := append([]string(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		bi, bj := filepath.Base(sorted[i]), filepath.Base(sorted[j])
		if bi != bj {
			return bi < bj
		}
		return sorted[i] < sorted[j]
	})

	p.logger.Info("linkage started",
		logging.FieldRunID, result.RunID,
		"scans", len(sorted),
		"roster_keys", p.index.Len(),
		"concurrency", p.opts.Concurrency,
	)

	slots := make([]outcome, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, path := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := p.process(path)
			if err != nil {
				return err
			}
			slots[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, out := range slots {
		p.merge(result, out)
	}
	result.FinishedAt = time.Now().UTC()

	p.logger.Info("linkage completed",
		logging.FieldRunID, result.RunID,
		"training_rows", len(result.Training),
		"unmatched", len(result.Unmatched),
		"failed", len(result.Failed),
		"duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	)
	return result, nil
}

func (p *Pipeline) process(path string) (outcome, error) {
	file := filepath.Base(path)
	out := outcome{file: file}

	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read scan %s: %w", file, err)
	}
	doc, err := scanfile.Decode(bytes.NewReader(data))
	if err != nil {
		out.failed = err.Error()
		return out, nil
	}
	rec, err := p.extractor.Extract(doc, file)
	if err != nil {
		out.failed = err.Error()
		return out, nil
	}
	out.record = rec
	out.match = p.matcher.Match(rec.Identity(), p.index)
	return out, nil
}

func (p *Pipeline) merge(result *Result, out outcome) {
	result.Files = append(result.Files, out.file)

	if out.failed != "" {
		p.logger.Warn("scan extraction failed",
			logging.FieldFile, out.file,
			logging.FieldEventType, "extraction_failed",
			"reason", out.failed,
		)
		result.Failed = append(result.Failed, Failed{File: out.file, Reason: out.failed})
		return
	}

	rec := out.record
	if !out.match.Matched() {
		p.logger.Info("scan unmatched",
			logging.FieldFile, out.file,
			"name", rec.Name,
			"dob", rec.DOB,
			"eye", rec.Eye.String(),
		)
		result.Unmatched = append(result.Unmatched, Unmatched{File: out.file, Record: rec})
		return
	}

	vector := features.Merge(rec, out.match, p.validator, features.MergeOptions{
		BlankOutcomeOnEyeMismatch: p.opts.BlankOutcomeOnEyeMismatch,
	})
	result.Training = append(result.Training, vector)
	result.Matched = append(result.Matched, Matched{File: out.file, Vector: vector, Match: out.match})

	attrs := []any{
		logging.FieldFile, out.file,
		logging.FieldStrategy, string(out.match.Strategy),
		"roster_line", out.match.Entry.Line,
	}
	if out.match.Strategy != matching.StrategyExact {
		attrs = append(attrs, "score", out.match.Score, "note", out.match.Note())
	}
	if len(vector.Warnings) > 0 {
		attrs = append(attrs, "warnings", strings.Join(vector.Warnings, "; "))
	}
	p.logger.Debug("scan matched", attrs...)
}

// ListScanFiles returns the regular files in dir whose extension equals ext
// (case-insensitive), sorted by name.
func ListScanFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scan directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
