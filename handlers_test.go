package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"medscan/pkg/analysis"
	"medscan/pkg/config"
	"medscan/pkg/meds"
	"medscan/pkg/pill"
	"medscan/pkg/report"
	"medscan/pkg/rx"
)

type fakeAnalyzer struct {
	ready bool
	err   error
	paths []string
}

func (f *fakeAnalyzer) Status() analysis.Status {
	return analysis.Status{Message: "ok", PrescriptionReady: f.ready, PillReady: f.ready}
}

func (f *fakeAnalyzer) AnalyzePrescription(_ context.Context, path string) (*report.Prescription, error) {
	f.paths = append(f.paths, path)
	r := &report.Prescription{RawText: "Rx\nAspirin 500mg", Patient: rx.Fields{}, Doctor: rx.Fields{}}
	if f.err != nil {
		r.Error = f.err.Error()
		return r, f.err
	}
	r.Medications = []report.MedicationEntry{{Mention: rx.Mention{Name: "Aspirin", Dosage: "500mg"}}}
	return r, nil
}

func (f *fakeAnalyzer) IdentifyPill(_ context.Context, path string) (*report.Pill, error) {
	f.paths = append(f.paths, path)
	rec, _ := meds.Get("aspirin")
	return &report.Pill{
		Identification: pill.Identification{Predictions: []pill.Prediction{{Label: "aspirin", Score: 0.9}}, PossibleMatches: []string{"aspirin"}},
		Records:        []meds.Record{rec},
	}, nil
}

func setupHandlerServer(t *testing.T, fa *fakeAnalyzer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, err := config.LoadFile(t.TempDir() + "/none.env")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	c.UploadBase = t.TempDir()
	c.MaxUploadMB = 1
	cfg = c
	jwtSecret = []byte("test-secret")
	db = nil
	svc = fa
	r := gin.New()
	setupRoutes(r)
	return r
}

func pngUpload(t *testing.T, name string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	w, _ := mw.CreateFormFile("file", name)
	if err := png.Encode(w, imaging.New(4, 4, color.NRGBA{255, 255, 255, 255})); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func TestStatusAndNotReady(t *testing.T) {
	r := setupHandlerServer(t, &fakeAnalyzer{})
	resp := performRequest(r, http.MethodGet, "/status", nil, "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status code %d", resp.Code)
	}
	body, ct := pngUpload(t, "rx.png")
	resp = performRequest(r, http.MethodPost, "/prescriptions/analyze", body, "", ct)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Error analyzing prescription: models not loaded") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestAnalyzePrescriptionRemovesUpload(t *testing.T) {
	fa := &fakeAnalyzer{ready: true}
	r := setupHandlerServer(t, fa)
	body, ct := pngUpload(t, "rx.png")
	resp := performRequest(r, http.MethodPost, "/prescriptions/analyze", body, "", ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	var out struct {
		Result report.Prescription `json:"result"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Result.Medications) != 1 || out.Result.Medications[0].Name != "Aspirin" {
		t.Fatalf("unexpected result %+v", out.Result)
	}
	if len(fa.paths) != 1 {
		t.Fatalf("expected one analysis got %d", len(fa.paths))
	}
	if _, err := os.Stat(fa.paths[0]); !os.IsNotExist(err) {
		t.Fatalf("upload should be removed after analysis")
	}
}

func TestAnalyzePrescriptionTextFormatAndFailure(t *testing.T) {
	fa := &fakeAnalyzer{ready: true, err: os.ErrInvalid}
	r := setupHandlerServer(t, fa)
	body, ct := pngUpload(t, "rx.jpg")
	resp := performRequest(r, http.MethodPost, "/prescriptions/analyze?format=text", body, "", ct)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), report.PrescriptionErrorPrefix) || !strings.Contains(resp.Body.String(), "--- Raw Extracted Text ---") {
		t.Fatalf("unexpected text body %q", resp.Body.String())
	}
}

func TestUploadValidation(t *testing.T) {
	r := setupHandlerServer(t, &fakeAnalyzer{ready: true})
	body, ct := pngUpload(t, "notes.pdf")
	resp := performRequest(r, http.MethodPost, "/pills/identify", body, "", ct)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "unsupported file type") {
		t.Fatalf("expected unsupported type, got %d %s", resp.Code, resp.Body.String())
	}

	big := &bytes.Buffer{}
	mw := multipart.NewWriter(big)
	w, _ := mw.CreateFormFile("file", "huge.png")
	_, _ = w.Write(make([]byte, 2<<20))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/pills/identify", big, "", mw.FormDataContentType())
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "too large") {
		t.Fatalf("expected too large, got %d %s", resp.Code, resp.Body.String())
	}

	resp = performRequest(r, http.MethodPost, "/pills/identify", nil, "", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file got %d", resp.Code)
	}
}

func TestIdentifyPillText(t *testing.T) {
	r := setupHandlerServer(t, &fakeAnalyzer{ready: true})
	body, ct := pngUpload(t, "pill.webp")
	resp := performRequest(r, http.MethodPost, "/pills/identify?format=text", body, "", ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "1. Aspirin: 90.00%") {
		t.Fatalf("unexpected report %q", resp.Body.String())
	}
}

func TestMedicationsEndpoints(t *testing.T) {
	r := setupHandlerServer(t, &fakeAnalyzer{})
	resp := performRequest(r, http.MethodGet, "/medications", nil, "", "")
	var all []meds.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &all); err != nil || len(all) != 10 {
		t.Fatalf("expected 10 records got %d (%v)", len(all), err)
	}
	resp = performRequest(r, http.MethodGet, "/medications/Ibuprofen", nil, "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	resp = performRequest(r, http.MethodGet, "/medications/warfarin", nil, "", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestHistoryRoutesNeedDB(t *testing.T) {
	r := setupHandlerServer(t, &fakeAnalyzer{})
	resp := performRequest(r, http.MethodGet, "/scans", nil, "", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without DB got %d", resp.Code)
	}
}

func TestParseBearer(t *testing.T) {
	setupHandlerServer(t, &fakeAnalyzer{})
	tok, err := signAccessToken("op", "operator", accessTokenTTL)
	if err != nil {
		t.Fatal(err)
	}
	claims, ok := parseBearer("Bearer " + tok)
	if !ok || claims["username"] != "op" {
		t.Fatalf("expected valid claims got %v %v", ok, claims)
	}
	if _, ok := parseBearer("Bearer " + tok + "x"); ok {
		t.Fatalf("tampered token accepted")
	}
	if _, ok := parseBearer("Basic abc"); ok {
		t.Fatalf("non-bearer accepted")
	}
}
