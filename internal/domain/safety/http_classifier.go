package safety

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClassifier calls an external moderation service. Configured via
// CLASSIFIER_URL; when unset the pattern classifier is used instead.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier backed by an external HTTP service
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

type classifyResponse struct {
	IsSafe  bool     `json:"is_safe"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// Classify posts the content to the external service. Errors propagate to the
// gate, which fails closed.
func (c *HTTPClassifier) Classify(ctx context.Context, text string, sender string) (Verdict, error) {
	body, err := json.Marshal(classifyRequest{Text: text, Sender: sender})
	if err != nil {
		return Verdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Verdict{}, err
	}

	return Verdict{
		IsSafe:  result.IsSafe,
		Score:   result.Score,
		Reasons: result.Reasons,
	}, nil
}
