package pill

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

var kbKeys = []string{"amoxicillin", "aspirin", "ibuprofen", "metformin", "paracetamol"}

func TestMatchAspirin(t *testing.T) {
	id := Match([]Prediction{{Label: "Aspirin", Score: 0.4}}, kbKeys)
	if len(id.PossibleMatches) != 1 || id.PossibleMatches[0] != "aspirin" {
		t.Fatalf("expected aspirin match got %v", id.PossibleMatches)
	}
}

func TestMatchGoldenRetrieverNone(t *testing.T) {
	id := Match([]Prediction{{Label: "golden_retriever", Score: 0.9}}, kbKeys)
	if len(id.PossibleMatches) != 0 {
		t.Fatalf("expected no match got %v", id.PossibleMatches)
	}
	if id.LooksLikeMedication {
		t.Fatalf("dog should not look like medication")
	}
}

func TestMatchBidirectionalAndDedup(t *testing.T) {
	preds := []Prediction{
		{Label: "pill_bottle"},
		{Label: "aspirin_tablet"},
		{Label: "amox"},
		{Label: "aspirin"},
	}
	id := Match(preds, kbKeys)
	want := []string{"aspirin", "amoxicillin"}
	if strings.Join(id.PossibleMatches, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v got %v", want, id.PossibleMatches)
	}
	if !id.LooksLikeMedication {
		t.Fatalf("pill bottle should look like medication")
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := DisplayLabel("golden_retriever"); got != "Golden Retriever" {
		t.Fatalf("got %q", got)
	}
}

func TestDecodeTopKOrder(t *testing.T) {
	classes := []Class{{"n0", "a"}, {"n1", "b"}, {"n2", "c"}, {"n3", "d"}}
	got := decodeTopK([]float64{0.1, 0.4, 0.1, 0.4}, classes, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 got %d", len(got))
	}
	if got[0].Label != "b" || got[1].Label != "d" || got[2].Label != "a" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestDecodeClassIndexRejectsGaps(t *testing.T) {
	if _, err := decodeClassIndex(strings.NewReader(`{"0":["n0","a"],"2":["n2","c"]}`)); err == nil {
		t.Fatalf("expected error for sparse index")
	}
}

var testLabels = map[string][]string{
	"0": {"n01", "golden_retriever"},
	"1": {"n02", "pill_bottle"},
	"2": {"n03", "aspirin"},
	"3": {"n04", "tabby"},
	"4": {"n05", "espresso"},
	"5": {"n06", "syringe"},
}

func writeLabels(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "imagenet_class_index.json")
	b, _ := json.Marshal(testLabels)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func servingStub(t *testing.T, state string, scores []float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/models/resnet50":
			w.Write([]byte(`{"model_version_status":[{"version":"1","state":"` + state + `"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/models/resnet50:predict":
			var req predictRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Instances) != 1 || len(req.Instances[0]) != InputSize {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"bad instance"}`))
				return
			}
			json.NewEncoder(w).Encode(predictResponse{Predictions: [][]float64{scores}})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestServingClassifierTopK(t *testing.T) {
	srv := servingStub(t, "AVAILABLE", []float64{0.05, 0.3, 0.5, 0.1, 0.03, 0.02})
	defer srv.Close()
	c := NewServingClassifier(ServingConfig{BaseURL: srv.URL, Model: "resnet50", Labels: writeLabels(t)}, nil)
	img := imaging.New(50, 30, color.NRGBA{255, 255, 255, 255})
	if _, err := c.Classify(context.Background(), img, 5); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded before Load, got %v", err)
	}
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	preds, err := c.Classify(context.Background(), img, 5)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(preds) != 5 {
		t.Fatalf("expected 5 predictions got %d", len(preds))
	}
	if preds[0].Label != "aspirin" || preds[1].Label != "pill_bottle" || preds[0].ClassID != "n03" {
		t.Fatalf("unexpected ranking %+v", preds)
	}
	id := Match(preds, kbKeys)
	if len(id.PossibleMatches) != 1 || !id.LooksLikeMedication {
		t.Fatalf("unexpected identification %+v", id)
	}
}

func TestServingClassifierModelNotAvailable(t *testing.T) {
	srv := servingStub(t, "LOADING", nil)
	defer srv.Close()
	c := NewServingClassifier(ServingConfig{BaseURL: srv.URL, Model: "resnet50", Labels: writeLabels(t)}, nil)
	if err := c.Load(context.Background()); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable got %v", err)
	}
}

func TestToTensorCaffeOrder(t *testing.T) {
	img := imaging.New(10, 10, color.NRGBA{200, 100, 50, 255})
	ts := toTensor(img)
	px := ts[0][0]
	// BGR minus means
	if d := px[0] - float32(50-103.939); d > 1.5 || d < -1.5 {
		t.Fatalf("blue channel %v", px)
	}
	if d := px[2] - float32(200-123.68); d > 1.5 || d < -1.5 {
		t.Fatalf("red channel %v", px)
	}
}

func TestToTensorSamplesNearestPixel(t *testing.T) {
	img := imaging.New(2*InputSize, 2*InputSize, color.NRGBA{0, 0, 255, 255})
	for y := 0; y < 2*InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			img.Set(x, y, color.NRGBA{255, 0, 0, 255})
		}
	}
	ts := toTensor(img)
	// last column of the red half must not be blended with blue
	px := ts[10][InputSize/2-1]
	if d := px[2] - float32(255-123.68); d > 1e-3 || d < -1e-3 {
		t.Fatalf("red half blended: %v", px)
	}
	if d := px[0] - float32(0-103.939); d > 1e-3 || d < -1e-3 {
		t.Fatalf("red half blended: %v", px)
	}
	px = ts[10][InputSize/2]
	if d := px[0] - float32(255-103.939); d > 1e-3 || d < -1e-3 {
		t.Fatalf("blue half blended: %v", px)
	}
}
