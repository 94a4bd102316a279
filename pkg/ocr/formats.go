package ocr

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var supportedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".webp": true,
}

// SupportedExt reports whether the file name carries an image extension we decode.
func SupportedExt(name string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(name))]
}

// SupportedExtensions lists accepted extensions, lowercase with the dot.
func SupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".webp"}
}

// OpenImage decodes path honouring EXIF orientation. Decode failures wrap
// ErrUnsupportedImage.
func OpenImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, filepath.Base(path), err)
	}
	return img, nil
}
