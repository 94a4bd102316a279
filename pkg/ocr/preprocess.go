package ocr

import (
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
)

// Filter chain parameters for prescription photos.
const (
	contrastPercent = 100 // doubles the distance from mid-gray
	sharpenSigma    = 1.0
	medianRadius    = 1 // 3x3 window
	upscaleFactor   = 2
)

// Preprocess turns a photo into a bitmap that is easier for OCR: grayscale,
// contrast x2, sharpen, 3x3 median denoise, then a 2x Lanczos upscale.
// The chain is deterministic.
func Preprocess(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, contrastPercent)
	out = imaging.Sharpen(out, sharpenSigma)
	out = medianFilter(out, medianRadius)
	b := out.Bounds()
	return imaging.Resize(out, b.Dx()*upscaleFactor, b.Dy()*upscaleFactor, imaging.Lanczos)
}

// PassImage builds the bitmap a pass hands to the engine from the
// preprocessed image. Unknown passes get prep unchanged.
func PassImage(pass string, prep *image.NRGBA) *image.NRGBA {
	switch pass {
	case PassBinarize:
		return binarize(prep, binarizeThreshold)
	case PassAdaptive:
		return dilate(adaptiveThreshold(prep, adaptiveWindow, adaptiveBias), 1)
	}
	return prep
}

// medianFilter replaces each pixel by the median luminance of its
// (2r+1)x(2r+1) neighbourhood. Edges are clamped.
func medianFilter(img *image.NRGBA, r int) *image.NRGBA {
	if r <= 0 {
		return img
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	src := toGray(img)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	win := make([]int, 0, (2*r+1)*(2*r+1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			win = win[:0]
			for dy := -r; dy <= r; dy++ {
				yy := clamp(y+dy, 0, h-1)
				for dx := -r; dx <= r; dx++ {
					xx := clamp(x+dx, 0, w-1)
					win = append(win, int(src[yy*w+xx]))
				}
			}
			sort.Ints(win)
			v := uint8(win[len(win)/2])
			i := out.PixOffset(x, y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 255
		}
	}
	return out
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	src := toGray(img)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, g := range src {
		var v uint8 = 255
		if g <= threshold {
			v = 0
		}
		o := i * 4
		out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = v, v, v, 255
	}
	return out
}

// adaptiveThreshold performs a mean adaptive threshold using an integral image.
func adaptiveThreshold(img *image.NRGBA, window int, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	src := toGray(img)
	ints := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += int(src[y*w+x])
			if y == 0 {
				ints[y*w+x] = rowSum
			} else {
				ints[y*w+x] = ints[(y-1)*w+x] + rowSum
			}
		}
	}
	at := func(x, y int) int {
		if x < 0 || y < 0 {
			return 0
		}
		return ints[y*w+x]
	}
	half := window / 2
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := clamp(x-half, 0, w-1), clamp(y-half, 0, h-1)
			x1, y1 := clamp(x+half, 0, w-1), clamp(y+half, 0, h-1)
			sum := at(x1, y1) - at(x0-1, y1) - at(x1, y0-1) + at(x0-1, y0-1)
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			if int(src[y*w+x]) < mean-bias {
				i := out.PixOffset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = 0, 0, 0
			}
		}
	}
	return out
}

// dilate grows black strokes over a 4-neighbourhood radius times.
func dilate(img *image.NRGBA, radius int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cur := img
	for r := 0; r < radius; r++ {
		src := toGray(cur)
		next := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for _, d := range [][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x2, y2 := x+d[0], y+d[1]
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					if src[y2*w+x2] == 0 {
						i := next.PixOffset(x, y)
						next.Pix[i], next.Pix[i+1], next.Pix[i+2] = 0, 0, 0
						break
					}
				}
			}
		}
		cur = next
	}
	return cur
}

// toGray flattens an NRGBA image to one luminance byte per pixel.
func toGray(img *image.NRGBA) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, bb := int(row[x*4]), int(row[x*4+1]), int(row[x*4+2])
			out[y*w+x] = uint8((299*r + 587*g + 114*bb + 500) / 1000)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
