// Package download fetches every advertised coverage into an output
// directory, one request at a time.
package download

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/model"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/observability"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
	"github.com/mohammed-shakir/wcs-downloader/internal/events"
	"github.com/mohammed-shakir/wcs-downloader/internal/mapper"
	"github.com/mohammed-shakir/wcs-downloader/internal/rename"
)

const (
	command       = "download"
	DefaultDelay  = time.Second
	partialSuffix = ".part"
)

type Fetcher interface {
	FetchCoverage(ctx context.Context, coverageID string, w io.Writer) (int64, error)
}

type Options struct {
	OutputDir string
	Rules     []rename.Rule
	// Delay is the pause after each fetched coverage. Zero means DefaultDelay;
	// a negative value disables the pause.
	Delay     time.Duration
	Publisher events.Publisher
	Mapper    mapper.Interface
	H3Res     int
}

type Summary struct {
	Total      int
	Downloaded int
	Skipped    int
	Bytes      int64
}

type Downloader struct {
	fetch  Fetcher
	logger *slog.Logger
	opts   Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(f Fetcher, logger *slog.Logger, opts Options) *Downloader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	return &Downloader{
		fetch:  f,
		logger: logger,
		opts:   opts,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// TargetPath is where the coverage is stored once substitution rules ran.
func (d *Downloader) TargetPath(c model.CoverageDescriptor) string {
	return filepath.Join(d.opts.OutputDir, rename.Apply(c.FileName(), d.opts.Rules))
}

// Run downloads the coverages in order. Existing files are skipped without
// a request. The first failure stops the run; files written before it stay.
func (d *Downloader) Run(ctx context.Context, coverages []model.CoverageDescriptor) (Summary, error) {
	sum := Summary{Total: len(coverages)}

	if err := os.MkdirAll(d.opts.OutputDir, 0o755); err != nil {
		return sum, wcserr.Wrapf(wcserr.ErrFilesystem, err, "create output directory")
	}

	for i, c := range coverages {
		path := d.TargetPath(c)
		progress := []any{"n", i + 1, "total", sum.Total, "coverage_id", c.ID, "file", path}

		exists, err := fileExists(path)
		if err != nil {
			observability.IncCoverage(command, observability.OutcomeFailed)
			return sum, err
		}
		if exists {
			sum.Skipped++
			observability.IncCoverage(command, observability.OutcomeSkipped)
			d.logger.InfoContext(ctx, "coverage exists, skipped", progress...)
			continue
		}

		n, err := d.fetchTo(ctx, c.ID, path)
		if err != nil {
			observability.IncCoverage(command, observability.OutcomeFailed)
			d.logger.ErrorContext(ctx, "coverage download failed", append(progress, "err", err)...)
			return sum, err
		}
		sum.Downloaded++
		sum.Bytes += n
		observability.IncCoverage(command, observability.OutcomeDownloaded)
		observability.AddDownloadBytes(n)
		d.logger.InfoContext(ctx, "coverage downloaded", append(progress, "bytes", n)...)

		d.publish(ctx, c, path, n)

		if i < len(coverages)-1 && d.opts.Delay > 0 {
			if err := d.sleep(ctx, d.opts.Delay); err != nil {
				return sum, wcserr.Wrap(wcserr.ErrNetwork, err)
			}
		}
	}
	return sum, nil
}

// fetchTo writes into a sibling .part file and renames it, so an
// interrupted transfer never looks like a finished file to the skip check.
func (d *Downloader) fetchTo(ctx context.Context, coverageID, path string) (int64, error) {
	tmp := path + partialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return 0, wcserr.Wrapf(wcserr.ErrFilesystem, err, "create %s", tmp)
	}

	fw := &fileWriter{f: f}
	n, err := d.fetch.FetchCoverage(ctx, coverageID, fw)
	if fw.err != nil {
		err = wcserr.Wrapf(wcserr.ErrFilesystem, fw.err, "write %s", tmp)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = wcserr.Wrapf(wcserr.ErrFilesystem, cerr, "close %s", tmp)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return n, err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return n, wcserr.Wrapf(wcserr.ErrFilesystem, err, "rename %s", tmp)
	}
	return n, nil
}

func (d *Downloader) publish(ctx context.Context, c model.CoverageDescriptor, path string, n int64) {
	if _, nop := d.opts.Publisher.(events.Nop); nop {
		return
	}
	layer := rename.LayerName(path)
	ev := events.CoverageEvent{
		Version:    events.EventVersion,
		Op:         events.OpUpdate,
		Layer:      layer,
		CoverageID: c.ID,
		File:       path,
		Bytes:      n,
		TS:         d.now().UTC(),
		Source:     events.Source,
	}
	if b, ok := c.Bound(); ok {
		ev.BBox = &events.BBox{X1: b.Min[0], Y1: b.Min[1], X2: b.Max[0], Y2: b.Max[1], SRID: "EPSG:4326"}
		if d.opts.Mapper != nil {
			cell, err := d.opts.Mapper.CenterCell(b, d.opts.H3Res)
			if err != nil {
				d.logger.WarnContext(ctx, "no h3 cell for coverage", "coverage_id", c.ID, "err", err)
			} else {
				ev.Cell = cell
			}
		}
	}
	if err := d.opts.Publisher.Publish(ctx, ev); err != nil {
		d.logger.WarnContext(ctx, "coverage event not published", "coverage_id", c.ID, "err", err)
	}
}

// fileWriter remembers the first write error so a failed disk write is not
// reported as a network failure by the fetcher.
type fileWriter struct {
	f   *os.File
	err error
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil && w.err == nil {
		w.err = err
	}
	return n, err
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, wcserr.Wrapf(wcserr.ErrFilesystem, err, "stat %s", path)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
