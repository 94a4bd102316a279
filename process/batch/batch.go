// Package batch analyzes a directory of prescription images with a worker
// pool, optionally watching it for new files. Each analyzed image is moved to
// a processed directory next to a <name>.report.txt file.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"medscan/models"
	"medscan/pkg/analysis"
	"medscan/pkg/ocr"
	"medscan/pkg/report"
)

const (
	reportSuffix = ".report.txt"
	// temp images written by the OCR passes; never picked up as input
	ocrTempPrefix = "rx-preproc-"

	debounceTick   = 250 * time.Millisecond
	debounceStable = 300 * time.Millisecond
)

var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Analyzer is the prescription analysis step.
type Analyzer interface {
	AnalyzePrescription(ctx context.Context, path string) (*report.Prescription, error)
}

// Options configure a Processor. Zero MaxBytes keeps processed images as is.
type Options struct {
	Dir          string
	ProcessedDir string
	Workers      int
	MaxBytes     int64
	DryRun       bool
	Logger       *zap.Logger
	// DB is optional; a Scan row is saved per file when set.
	DB *gorm.DB
}

// Stats counts outcomes since the Processor was built.
type Stats struct {
	Processed int64
	Failed    int64
}

type Processor struct {
	opts     Options
	analyzer Analyzer
	log      *zap.Logger

	inflight  sync.Map
	processed atomic.Int64
	failed    atomic.Int64
}

func New(a Analyzer, opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ProcessedDir == "" {
		opts.ProcessedDir = filepath.Join(opts.Dir, "processed")
	}
	opts.Workers = effectiveWorkers(opts.Workers)
	return &Processor{opts: opts, analyzer: a, log: opts.Logger}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func (p *Processor) Workers() int { return p.opts.Workers }

func (p *Processor) Stats() Stats {
	return Stats{Processed: p.processed.Load(), Failed: p.failed.Load()}
}

// ListImageFiles returns the supported image names directly under dir, sorted.
func ListImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isCandidate(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isCandidate(name string) bool {
	if strings.HasPrefix(name, ocrTempPrefix) || strings.HasPrefix(name, ".") {
		return false
	}
	return ocr.SupportedExt(name)
}

// Scan processes every image currently in the directory and waits for the
// pool to drain.
func (p *Processor) Scan(ctx context.Context) Stats {
	files := ListImageFiles(p.opts.Dir)
	p.log.Info("scanning", zap.String("dir", p.opts.Dir), zap.Int("files", len(files)), zap.Int("workers", p.opts.Workers))
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, f := range files {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	p.runWorkerPool(ctx, ch)
	return p.Stats()
}

// Watch feeds newly created images to the pool until ctx is cancelled. A file
// is handed over once no event touched it for debounceStable.
func (p *Processor) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(p.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", p.opts.Dir, err)
	}
	p.log.Info("watching (debounced)", zap.String("dir", p.opts.Dir))

	fileCh := make(chan string, 256)
	go func() {
		defer close(fileCh)
		pending := map[string]time.Time{}
		ticker := time.NewTicker(debounceTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				// events for the processed dir itself are ignored
				if filepath.Dir(ev.Name) != filepath.Clean(p.opts.Dir) {
					continue
				}
				name := filepath.Base(ev.Name)
				if !isCandidate(name) {
					continue
				}
				pending[name] = time.Now()
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > debounceStable {
						select {
						case fileCh <- name:
						case <-ctx.Done():
							return
						}
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				p.log.Warn("watch error", zap.Error(err))
			}
		}
	}()

	p.runWorkerPool(ctx, fileCh)
	return nil
}

// runWorkerPool drains in with a fixed number of workers and returns once in
// is closed and every worker is done.
func (p *Processor) runWorkerPool(ctx context.Context, in <-chan string) {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range in {
				if ctx.Err() != nil {
					continue
				}
				if err := p.ProcessFile(ctx, name); err != nil {
					p.log.Warn("process failed", zap.String("file", name), zap.Error(err))
				}
			}
		}()
	}
	wg.Wait()
}

// ProcessFile analyzes one image of the directory. Failed analyses are still
// moved with their error report so they are not picked up again; only a
// not-ready service leaves the file in place.
func (p *Processor) ProcessFile(ctx context.Context, name string) error {
	if _, busy := p.inflight.LoadOrStore(name, struct{}{}); busy {
		return nil
	}
	defer p.inflight.Delete(name)

	full := filepath.Join(p.opts.Dir, name)
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if p.opts.DryRun {
		p.log.Info("dry-run: would analyze", zap.String("file", name))
		return nil
	}

	rep, err := p.analyzer.AnalyzePrescription(ctx, full)
	if errors.Is(err, analysis.ErrNotReady) {
		return err
	}
	if rep == nil {
		rep = &report.Prescription{}
		if err != nil {
			rep.Error = err.Error()
		}
	}
	if err != nil {
		p.failed.Add(1)
	} else {
		p.processed.Add(1)
	}

	if err := os.MkdirAll(p.opts.ProcessedDir, 0o755); err != nil {
		return err
	}
	if err := moveToProcessed(full, filepath.Join(p.opts.ProcessedDir, name), p.opts.MaxBytes); err != nil {
		return fmt.Errorf("move %s: %w", name, err)
	}
	reportPath := filepath.Join(p.opts.ProcessedDir, name+reportSuffix)
	if err := os.WriteFile(reportPath, []byte(report.PrescriptionText(rep)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	p.log.Info("analyzed",
		zap.String("file", name),
		zap.Int("medications", len(rep.Medications)),
		zap.Bool("failed", rep.Error != ""))

	if p.opts.DB != nil {
		scan := models.NewPrescriptionScan(name, mimeFromExt(name), rep)
		scan.StorePath = filepath.ToSlash(filepath.Join(p.opts.ProcessedDir, name))
		if err := p.opts.DB.WithContext(ctx).Create(scan).Error; err != nil {
			return fmt.Errorf("record scan: %w", err)
		}
	}
	return nil
}

func mimeFromExt(name string) string {
	return extMime[strings.ToLower(filepath.Ext(name))]
}
