package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"medscan/pkg/config"
	"medscan/pkg/ocr"
	"medscan/pkg/rx"
)

func main() {
	parse := flag.Bool("parse", false, "also print the extracted fields")
	flag.Parse()
	p := "public/processed/sample.png"
	if flag.NArg() > 0 {
		p = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ex := ocr.NewExtractor(ocr.NewTesseractEngine(cfg.OCRLanguages(), cfg.OCRPSM), cfg.OCRWorkDir, zap.NewNop())
	ex.OnPass = func(pass string) { fmt.Fprintf(os.Stderr, "pass=%s\n", pass) }

	res, err := ex.Extract(context.Background(), p)
	if err != nil {
		log.Fatalf("extract %s: %v", p, err)
	}
	fmt.Printf("winning pass=%s chars=%d\n", res.Pass, len(res.Text))
	fmt.Println("--- raw ---")
	fmt.Println(res.Raw)
	fmt.Println("--- cleaned ---")
	fmt.Println(res.Text)
	if *parse {
		pr := rx.Parse(res.Text)
		fmt.Printf("patient=%v\ndoctor=%v\n", pr.Patient, pr.Doctor)
		for i, m := range pr.Medications {
			fmt.Printf("%d. %+v\n", i+1, m)
		}
	}
}
