package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"medscan/pkg/ocr"
)

// Writes the bitmap of every OCR pass next to the input so they can be
// inspected by eye.
func main() {
	in := flag.String("file", "", "prescription image")
	out := flag.String("out", "/tmp", "directory for the pass images")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-file required")
	}
	img, err := ocr.OpenImage(*in)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	prep := ocr.Preprocess(img)
	base := strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	for _, pass := range []string{ocr.PassPrimary, ocr.PassBinarize, ocr.PassAdaptive} {
		dst := filepath.Join(*out, fmt.Sprintf("%s.%s.png", base, pass))
		if err := imaging.Save(ocr.PassImage(pass, prep), dst); err != nil {
			log.Fatalf("save %s: %v", dst, err)
		}
		fmt.Printf("%s -> %s\n", pass, dst)
	}
}
