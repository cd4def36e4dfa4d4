package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	LabelCrying = "crying"
	LabelNormal = "normal"
)

// Verdict is a classifier's judgement of one audio chunk.
type Verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Classifier interface {
	Classify(ctx context.Context, chunk []byte) (Verdict, error)
}

// HTTPClassifier posts raw audio to an external model endpoint and
// decodes its {label, confidence} reply.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

func NewHTTPClassifier(url string) *HTTPClassifier {
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPClassifier) Classify(ctx context.Context, chunk []byte) (Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(chunk))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := h.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verdict{}, fmt.Errorf("classifier returned %d", resp.StatusCode)
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Verdict{}, fmt.Errorf("classifier response: %w", err)
	}
	return v, nil
}
