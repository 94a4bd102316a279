package ocr

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Pass names reported in Result.Pass.
const (
	PassPrimary  = "primary"
	PassBinarize = "binarize"
	PassAdaptive = "adaptive"
)

const (
	defaultMinUsefulChars = 12
	binarizeThreshold     = 180
	adaptiveWindow        = 15
	adaptiveBias          = 7
)

// Result is the outcome of one extraction.
type Result struct {
	Text string // cleaned text of the winning pass
	Raw  string // engine output before cleaning
	Pass string
}

// Extractor preprocesses an image, hands it to the Engine through a temp
// PNG and cleans the output.
type Extractor struct {
	Engine Engine
	// WorkDir receives the temp PNGs; "." when empty.
	WorkDir string
	// MinUsefulChars below which the fallback passes run. Negative disables them.
	MinUsefulChars int
	Logger         *zap.Logger
	// OnPass is called once per engine invocation with the pass name.
	OnPass func(pass string)
}

// NewExtractor returns an Extractor with default thresholds.
func NewExtractor(engine Engine, workDir string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{Engine: engine, WorkDir: workDir, MinUsefulChars: defaultMinUsefulChars, Logger: logger}
}

// Extract runs OCR on the image at path. Empty text is not an error.
func (x *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	img, err := OpenImage(path)
	if err != nil {
		return Result{}, err
	}
	return x.ExtractImage(ctx, img)
}

// ExtractImage is Extract for an already decoded image.
func (x *Extractor) ExtractImage(ctx context.Context, img image.Image) (Result, error) {
	if x.Engine == nil {
		return Result{}, fmt.Errorf("ocr: no engine configured")
	}
	prep := Preprocess(img)
	best, err := x.runPass(ctx, PassPrimary, prep)
	if err != nil {
		return Result{}, err
	}
	if x.MinUsefulChars < 0 || len(best.Text) >= x.MinUsefulChars {
		return best, nil
	}

	for _, pass := range []string{PassBinarize, PassAdaptive} {
		res, err := x.runPass(ctx, pass, PassImage(pass, prep))
		if err != nil {
			x.logger().Warn("ocr fallback pass failed", zap.String("pass", pass), zap.Error(err))
			continue
		}
		if len(res.Text) > len(best.Text) {
			best = res
		}
	}
	x.logger().Debug("ocr fallback result", zap.String("pass", best.Pass), zap.String("snippet", snippet(best.Text, 120)))
	return best, nil
}

// runPass writes img to exactly one temp file, which is removed before
// returning regardless of the engine outcome.
func (x *Extractor) runPass(ctx context.Context, name string, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	dir := x.WorkDir
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "rx-preproc-*.png")
	if err != nil {
		return Result{}, fmt.Errorf("create temp image: %w", err)
	}
	tmp := f.Name()
	_ = f.Close()
	defer os.Remove(tmp)

	if err := imaging.Save(img, tmp); err != nil {
		return Result{}, fmt.Errorf("save temp image: %w", err)
	}
	if x.OnPass != nil {
		x.OnPass(name)
	}
	raw, err := x.Engine.Text(ctx, tmp)
	if err != nil {
		return Result{}, fmt.Errorf("ocr %s pass: %w", name, err)
	}
	return Result{Text: CleanText(raw), Raw: raw, Pass: name}, nil
}

func (x *Extractor) logger() *zap.Logger {
	if x.Logger == nil {
		return zap.NewNop()
	}
	return x.Logger
}
