package pill

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Class is one ImageNet class: WordNet id and human label.
type Class struct {
	ID    string
	Label string
}

// LoadClassIndex reads a Keras imagenet_class_index.json style mapping
// ({"0": ["n01440764", "tench"], ...}) from a file path or an http(s) URL.
func LoadClassIndex(ctx context.Context, client *http.Client, src string) ([]Class, error) {
	var body io.ReadCloser
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch class index: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch class index: status %d", resp.StatusCode)
		}
		body = resp.Body
	} else {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open class index: %w", err)
		}
		body = f
	}
	defer body.Close()
	return decodeClassIndex(body)
}

func decodeClassIndex(r io.Reader) ([]Class, error) {
	var raw map[string][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode class index: %w", err)
	}
	idx := make([]int, 0, len(raw))
	for k := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("class index key %q: %w", k, err)
		}
		idx = append(idx, n)
	}
	sort.Ints(idx)
	if len(idx) == 0 || idx[0] != 0 || idx[len(idx)-1] != len(idx)-1 {
		return nil, fmt.Errorf("class index must be dense from 0, got %d entries", len(idx))
	}
	out := make([]Class, len(idx))
	for _, n := range idx {
		v := raw[strconv.Itoa(n)]
		if len(v) != 2 {
			return nil, fmt.Errorf("class %d: expected [id, label]", n)
		}
		out[n] = Class{ID: v[0], Label: v[1]}
	}
	return out, nil
}

// decodeTopK returns the k highest scores, ties broken by lower class index.
func decodeTopK(scores []float64, classes []Class, k int) []Prediction {
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	out := make([]Prediction, 0, k)
	for _, i := range order[:k] {
		p := Prediction{Score: scores[i]}
		if i < len(classes) {
			p.ClassID, p.Label = classes[i].ID, classes[i].Label
		}
		out = append(out, p)
	}
	return out
}
