// Package advisory consults an optional external analysis service before
// execution. Advisory failures are never fatal; only an explicit abort
// recommendation stops an attempt.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Recommendation is the advisory verdict vocabulary.
type Recommendation string

const (
	Proceed Recommendation = "proceed"
	Adjust  Recommendation = "adjust"
	Abort   Recommendation = "abort"
)

// Context describes the pending execution for the analysis service.
type Context struct {
	OwnerID     string `json:"owner_id"`
	BotID       string `json:"bot_id"`
	BotType     string `json:"bot_type"`
	FeePayer    string `json:"fee_payer"`
	TxHash      string `json:"tx_hash"`
	DeclaredFee uint64 `json:"declared_fee"`
	Balance     uint64 `json:"balance"`
}

// Advice is the service's response.
type Advice struct {
	Recommendation Recommendation    `json:"recommendation"`
	Confidence     float64           `json:"confidence"`
	Reasoning      string            `json:"reasoning"`
	Adjustments    map[string]string `json:"adjustments,omitempty"`
}

// Advisor analyzes a pending execution.
type Advisor interface {
	Analyze(ctx context.Context, ec Context) (*Advice, error)
}

// HTTPAdvisor posts execution context to a remote analysis endpoint.
type HTTPAdvisor struct {
	base string
	http *http.Client
}

// NewHTTPAdvisor targets base with a bounded per-request timeout.
func NewHTTPAdvisor(base string, timeout time.Duration) *HTTPAdvisor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPAdvisor{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

// Analyze posts the execution context and decodes the advice.
func (a *HTTPAdvisor) Analyze(ctx context.Context, ec Context) (*Advice, error) {
	body, err := json.Marshal(ec)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisory: status %d", resp.StatusCode)
	}
	var advice Advice
	if err := json.NewDecoder(resp.Body).Decode(&advice); err != nil {
		return nil, err
	}
	if advice.Recommendation == "" {
		advice.Recommendation = Proceed
	}
	return &advice, nil
}
