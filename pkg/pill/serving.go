package pill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// InputSize is the square input resolution of ResNet50.
const InputSize = 224

// caffe-style ImageNet channel means in BGR order.
var bgrMeans = [3]float64{103.939, 116.779, 123.68}

// ServingConfig points the classifier at a TensorFlow Serving REST endpoint.
type ServingConfig struct {
	BaseURL string // e.g. http://localhost:8501
	Model   string // e.g. resnet50
	Labels  string // class index path or URL
	Timeout time.Duration
	Breaker BreakerConfig
	// OnBreakerState receives "closed", "open" or "half-open".
	OnBreakerState func(state string)
}

// ServingClassifier classifies images with a ResNet50 hosted by TensorFlow
// Serving. It is safe for concurrent use once loaded.
type ServingClassifier struct {
	cfg     ServingConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	mu      sync.RWMutex
	classes []Class
}

// NewServingClassifier builds a classifier; call Load before Classify.
func NewServingClassifier(cfg ServingConfig, logger *zap.Logger) *ServingClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Breaker == (BreakerConfig{}) {
		cfg.Breaker = DefaultBreakerConfig()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ServingClassifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker("classifier:"+cfg.Model, cfg.Breaker, logger, cfg.OnBreakerState),
		logger:  logger,
	}
}

type modelStatus struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

// Load reads the class index and checks that the model has an AVAILABLE version.
func (c *ServingClassifier) Load(ctx context.Context) error {
	classes, err := LoadClassIndex(ctx, c.client, c.cfg.Labels)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(""), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrModelUnavailable, resp.StatusCode)
	}
	var st modelStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("%w: decode status: %v", ErrModelUnavailable, err)
	}
	version := ""
	for _, v := range st.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			version = v.Version
			break
		}
	}
	if version == "" {
		return fmt.Errorf("%w: no AVAILABLE version of %s", ErrModelUnavailable, c.cfg.Model)
	}

	c.mu.Lock()
	c.classes = classes
	c.mu.Unlock()
	c.logger.Info("classifier loaded",
		zap.String("model", c.cfg.Model),
		zap.String("version", version),
		zap.Int("classes", len(classes)))
	return nil
}

type predictRequest struct {
	Instances [][][][3]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

// Classify returns the k best labels for img.
func (c *ServingClassifier) Classify(ctx context.Context, img image.Image, k int) ([]Prediction, error) {
	c.mu.RLock()
	classes := c.classes
	c.mu.RUnlock()
	if classes == nil {
		return nil, ErrNotLoaded
	}

	payload, err := json.Marshal(predictRequest{Instances: [][][][3]float32{toTensor(img)}})
	if err != nil {
		return nil, fmt.Errorf("encode instance: %w", err)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.predict(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return nil, err
	}
	scores := out.([]float64)
	if len(scores) != len(classes) {
		return nil, fmt.Errorf("model returned %d scores for %d classes", len(scores), len(classes))
	}
	return decodeTopK(scores, classes, k), nil
}

func (c *ServingClassifier) predict(ctx context.Context, payload []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(":predict"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read predict response: %w", err)
	}
	var pr predictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("decode predict response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || pr.Error != "" {
		return nil, fmt.Errorf("predict: status %d: %s", resp.StatusCode, pr.Error)
	}
	if len(pr.Predictions) != 1 {
		return nil, fmt.Errorf("predict: expected 1 prediction row, got %d", len(pr.Predictions))
	}
	return pr.Predictions[0], nil
}

func (c *ServingClassifier) modelURL(suffix string) string {
	return c.cfg.BaseURL + "/v1/models/" + c.cfg.Model + suffix
}

// toTensor resizes img to InputSize with nearest-neighbour sampling, as
// Keras load_img does, and applies caffe preprocessing: channels reordered
// to BGR and the ImageNet means subtracted.
func toTensor(img image.Image) [][][3]float32 {
	small := imaging.Resize(img, InputSize, InputSize, imaging.NearestNeighbor)
	t := make([][][3]float32, InputSize)
	for y := 0; y < InputSize; y++ {
		row := make([][3]float32, InputSize)
		for x := 0; x < InputSize; x++ {
			i := small.PixOffset(x, y)
			r, g, b := float64(small.Pix[i]), float64(small.Pix[i+1]), float64(small.Pix[i+2])
			row[x] = [3]float32{
				float32(b - bgrMeans[0]),
				float32(g - bgrMeans[1]),
				float32(r - bgrMeans[2]),
			}
		}
		t[y] = row
	}
	return t
}
