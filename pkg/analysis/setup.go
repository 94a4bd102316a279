package analysis

import (
	"go.uber.org/zap"

	"medscan/pkg/config"
	"medscan/pkg/metrics"
	"medscan/pkg/ocr"
	"medscan/pkg/pill"
)

// FromConfig builds a Service with the Tesseract extractor and the
// TF-Serving classifier described by cfg. m may be nil.
func FromConfig(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	extractor := ocr.NewExtractor(ocr.NewTesseractEngine(cfg.OCRLanguages(), cfg.OCRPSM), cfg.OCRWorkDir, log.Named("ocr"))
	extractor.OnPass = m.OCRPass
	classifier := pill.NewServingClassifier(pill.ServingConfig{
		BaseURL:        cfg.ClassifierURL,
		Model:          cfg.ClassifierModel,
		Labels:         cfg.ClassifierLabels,
		Timeout:        cfg.ClassifierTimeout,
		OnBreakerState: m.SetBreakerState,
	}, log.Named("classifier"))
	return New(extractor, classifier, m, log.Named("analysis"))
}
