package ocr

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

type fakeEngine struct {
	texts []string // returned in order, last one repeats
	err   error
	paths []string
	seen  []bool // whether the temp file existed during the call
}

func (f *fakeEngine) Text(_ context.Context, p string) (string, error) {
	f.paths = append(f.paths, p)
	_, statErr := os.Stat(p)
	f.seen = append(f.seen, statErr == nil)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.paths) - 1
	if i >= len(f.texts) {
		i = len(f.texts) - 1
	}
	return f.texts[i], nil
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	img := imaging.New(40, 20, color.NRGBA{200, 30, 30, 255})
	p := filepath.Join(dir, "sample.png")
	if err := imaging.Save(img, p); err != nil {
		t.Fatalf("save sample: %v", err)
	}
	return p
}

func TestPreprocessDoublesAndGrays(t *testing.T) {
	img := imaging.New(30, 17, color.NRGBA{10, 200, 90, 255})
	out := Preprocess(img)
	if out.Bounds().Dx() != 60 || out.Bounds().Dy() != 34 {
		t.Fatalf("expected 60x34 got %v", out.Bounds())
	}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != out.Pix[i+1] || out.Pix[i+1] != out.Pix[i+2] {
			t.Fatalf("pixel %d not gray: %v", i/4, out.Pix[i:i+3])
		}
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	img := imaging.New(12, 12, color.NRGBA{120, 40, 220, 255})
	a, b := Preprocess(img), Preprocess(img)
	if string(a.Pix) != string(b.Pix) {
		t.Fatalf("preprocess output differs between runs")
	}
}

func TestMedianRemovesSpeck(t *testing.T) {
	img := imaging.New(5, 5, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(2, 2, color.NRGBA{0, 0, 0, 255})
	out := medianFilter(img, 1)
	if v := out.NRGBAAt(2, 2).R; v != 255 {
		t.Fatalf("expected speck removed got %d", v)
	}
}

func TestCleanTextKeepsLines(t *testing.T) {
	in := "  Patient:\t John   Smith \r\n\n\x00Age: 45\x07\n   \nRx"
	got := CleanText(in)
	want := "Patient: John Smith\nAge: 45\nRx"
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestExtractRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSample(t, dir)
	eng := &fakeEngine{texts: []string{"Patient: John Smith\nRx\nAspirin 500mg"}}
	x := NewExtractor(eng, dir, nil)
	res, err := x.Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Pass != PassPrimary || res.Text == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(eng.paths) != 1 || !eng.seen[0] {
		t.Fatalf("expected one temp file visible to engine, got %v %v", eng.paths, eng.seen)
	}
	if _, err := os.Stat(eng.paths[0]); !os.IsNotExist(err) {
		t.Fatalf("temp file still present: %v", err)
	}
	if filepath.Dir(eng.paths[0]) != dir {
		t.Fatalf("temp file not in work dir: %s", eng.paths[0])
	}
}

func TestExtractRemovesTempFileOnEngineError(t *testing.T) {
	dir := t.TempDir()
	src := writeSample(t, dir)
	boom := errors.New("tesseract exploded")
	eng := &fakeEngine{err: boom}
	x := NewExtractor(eng, dir, nil)
	if _, err := x.Extract(context.Background(), src); !errors.Is(err, boom) {
		t.Fatalf("expected engine error got %v", err)
	}
	for _, p := range eng.paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("temp file %s left behind", p)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the source image in work dir, got %d entries", len(entries))
	}
}

func TestExtractFallbackKeepsLongest(t *testing.T) {
	dir := t.TempDir()
	src := writeSample(t, dir)
	eng := &fakeEngine{texts: []string{"ab", "Rx\nAspirin 500mg daily", "Rx"}}
	var passes []string
	x := NewExtractor(eng, dir, nil)
	x.OnPass = func(p string) { passes = append(passes, p) }
	res, err := x.Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Pass != PassBinarize {
		t.Fatalf("expected binarize pass to win got %q", res.Pass)
	}
	if len(passes) != 3 {
		t.Fatalf("expected 3 passes got %v", passes)
	}
}

func TestExtractEmptyTextIsNotError(t *testing.T) {
	dir := t.TempDir()
	src := writeSample(t, dir)
	x := NewExtractor(&fakeEngine{texts: []string{"  \n "}}, dir, nil)
	res, err := x.Extract(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if res.Text != "" {
		t.Fatalf("expected empty text got %q", res.Text)
	}
}

func TestExtractUnsupportedImage(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(p, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	x := NewExtractor(&fakeEngine{texts: []string{"x"}}, dir, nil)
	if _, err := x.Extract(context.Background(), p); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage got %v", err)
	}
}

func TestSupportedExt(t *testing.T) {
	for _, n := range []string{"a.JPG", "b.png", "c.webp", "d.bmp"} {
		if !SupportedExt(n) {
			t.Fatalf("%s should be supported", n)
		}
	}
	if SupportedExt("e.pdf") {
		t.Fatalf("pdf should not be supported")
	}
}

func TestPassImageBinarizeIsBlackAndWhite(t *testing.T) {
	img := imaging.New(6, 6, color.NRGBA{120, 120, 120, 255})
	img.Set(0, 0, color.NRGBA{250, 250, 250, 255})
	out := PassImage(PassBinarize, img)
	for i := 0; i < len(out.Pix); i += 4 {
		if v := out.Pix[i]; v != 0 && v != 255 {
			t.Fatalf("pixel %d not binary: %d", i/4, v)
		}
	}
	if out.Pix[0] != 255 || out.Pix[4] != 0 {
		t.Fatalf("unexpected threshold result %v %v", out.Pix[0], out.Pix[4])
	}
	if PassImage(PassPrimary, img) != img {
		t.Fatalf("primary pass must keep the preprocessed image")
	}
}
