// Package analysis wires OCR, the prescription parser, the pill classifier
// and the knowledge base into the two operator actions.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"medscan/pkg/meds"
	"medscan/pkg/metrics"
	"medscan/pkg/ocr"
	"medscan/pkg/pill"
	"medscan/pkg/report"
	"medscan/pkg/rx"
)

// ErrNotReady is returned while models are still loading or failed to load.
var ErrNotReady = errors.New("models not loaded")

// Extractor is the OCR step.
type Extractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// Status mirrors the status line shown to operators.
type Status struct {
	Message           string `json:"message"`
	PrescriptionReady bool   `json:"prescription_ready"`
	PillReady         bool   `json:"pill_ready"`
	Err               string `json:"error,omitempty"`
}

// Service runs analyses. Construct with New and call LoadModels once.
type Service struct {
	ocr        Extractor
	classifier pill.Classifier
	metrics    *metrics.Metrics
	logger     *zap.Logger

	loadOnce          sync.Once
	prescriptionReady atomic.Bool
	pillReady         atomic.Bool

	mu      sync.RWMutex
	message string
	loadErr error
}

// New builds a Service. metrics may be nil.
func New(extractor Extractor, classifier pill.Classifier, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ocr:        extractor,
		classifier: classifier,
		metrics:    m,
		logger:     logger,
		message:    "Loading models...",
	}
}

// LoadModels loads the classifier and flips the readiness flags. Only the
// first call does work; later calls return the first outcome.
func (s *Service) LoadModels(ctx context.Context) error {
	s.loadOnce.Do(func() {
		start := time.Now()
		err := s.classifier.Load(ctx)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.loadErr = err
			s.message = fmt.Sprintf("Error loading models - %v", err)
			s.logger.Error("model load failed", zap.Error(err))
			return
		}
		// Both actions share one startup load.
		s.prescriptionReady.Store(true)
		s.pillReady.Store(true)
		s.metrics.SetReady(metrics.KindPrescription, true)
		s.metrics.SetReady(metrics.KindPill, true)
		s.message = "Models loaded successfully"
		s.logger.Info("models loaded", zap.Duration("took", time.Since(start)))
	})
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Status reports readiness.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Message:           s.message,
		PrescriptionReady: s.prescriptionReady.Load(),
		PillReady:         s.pillReady.Load(),
	}
	if s.loadErr != nil {
		st.Err = s.loadErr.Error()
	}
	return st
}

func (s *Service) setMessage(msg string) {
	s.mu.Lock()
	s.message = msg
	s.mu.Unlock()
}

// AnalyzePrescription runs OCR and field extraction on the image at path.
// The returned report is never nil; on failure its Error is filled and any
// text already extracted is kept.
func (s *Service) AnalyzePrescription(ctx context.Context, path string) (*report.Prescription, error) {
	out := &report.Prescription{Patient: rx.Fields{}, Doctor: rx.Fields{}, Medications: []report.MedicationEntry{}}
	if !s.prescriptionReady.Load() {
		out.Error = ErrNotReady.Error()
		return out, ErrNotReady
	}
	start := time.Now()
	s.setMessage("Analyzing prescription...")

	res, err := s.ocr.Extract(ctx, path)
	s.metrics.Observe(metrics.KindPrescription, start, err)
	if err != nil {
		out.Error = err.Error()
		s.setMessage("Error in prescription analysis")
		s.logger.Warn("prescription analysis failed", zap.String("path", path), zap.Error(err))
		return out, err
	}
	out.RawText, out.OCRPass = res.Text, res.Pass

	parsed := rx.Parse(res.Text)
	out.Patient, out.Doctor = parsed.Patient, parsed.Doctor
	for _, m := range parsed.Medications {
		e := report.MedicationEntry{Mention: m}
		if rec, ok := meds.Lookup(m.Name); ok {
			e.Information = rec.Purpose
		}
		out.Medications = append(out.Medications, e)
	}
	s.setMessage("Prescription analysis completed")
	s.logger.Info("prescription analyzed",
		zap.String("pass", res.Pass),
		zap.Int("chars", len(res.Text)),
		zap.Int("medications", len(out.Medications)),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// IdentifyPill classifies the image at path and matches the top labels
// against the knowledge base.
func (s *Service) IdentifyPill(ctx context.Context, path string) (*report.Pill, error) {
	out := &report.Pill{Identification: pill.Identification{Predictions: []pill.Prediction{}, PossibleMatches: []string{}}, Records: []meds.Record{}}
	if !s.pillReady.Load() {
		out.Error = ErrNotReady.Error()
		return out, ErrNotReady
	}
	start := time.Now()
	s.setMessage("Identifying medication...")

	preds, err := s.classify(ctx, path)
	s.metrics.Observe(metrics.KindPill, start, err)
	if err != nil {
		out.Error = err.Error()
		s.setMessage("Error in medication identification")
		s.logger.Warn("pill identification failed", zap.String("path", path), zap.Error(err))
		return out, err
	}
	out.Identification = pill.Match(preds, meds.Keys())
	for _, k := range out.PossibleMatches {
		if rec, ok := meds.Get(k); ok {
			out.Records = append(out.Records, rec)
		}
	}
	s.setMessage("Medication identification completed")
	s.logger.Info("pill identified",
		zap.Int("matches", len(out.PossibleMatches)),
		zap.Bool("looks_like_medication", out.LooksLikeMedication),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

func (s *Service) classify(ctx context.Context, path string) ([]pill.Prediction, error) {
	img, err := ocr.OpenImage(path)
	if err != nil {
		return nil, err
	}
	return s.classifier.Classify(ctx, img, pill.DefaultTopK)
}
