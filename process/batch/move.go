package batch

import (
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"
)

// moveToProcessed moves src to dst. Files above maxBytes are downscaled with
// imaging first; anything that cannot be decoded is moved untouched. It tries
// an atomic rename and falls back to copy+remove.
func moveToProcessed(src, dst string, maxBytes int64) error {
	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if maxBytes <= 0 || fi.Size() <= maxBytes {
		return rename(src, dst)
	}
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return rename(src, dst)
	}
	// size roughly scales with area
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	if scale > 0.95 {
		scale = 0.95
	}
	if scale < 0.1 {
		scale = 0.1
	}
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
	small := imaging.Resize(img, w, h, imaging.Lanczos)
	if err := imaging.Save(small, dst); err != nil {
		return rename(src, dst)
	}
	_ = os.Remove(src)

	// one more 80% pass when still too big
	if fi2, err := os.Stat(dst); err == nil && fi2.Size() > maxBytes {
		if img2, err := imaging.Open(dst); err == nil {
			img2 = imaging.Resize(img2, int(float64(img2.Bounds().Dx())*0.8), 0, imaging.Lanczos)
			_ = imaging.Save(img2, dst)
		}
	}
	return nil
}

func rename(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
