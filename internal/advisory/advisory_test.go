package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnalyzePostsContext(t *testing.T) {
	var got Context
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Advice{
			Recommendation: Abort,
			Confidence:     0.92,
			Reasoning:      "pool drained",
		})
	}))
	defer srv.Close()

	adv := NewHTTPAdvisor(srv.URL, time.Second)
	advice, err := adv.Analyze(context.Background(), Context{
		OwnerID:     "alice",
		BotID:       "bot1",
		TxHash:      "abc",
		DeclaredFee: 5000,
		Balance:     100,
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if advice.Recommendation != Abort || advice.Reasoning != "pool drained" {
		t.Fatalf("unexpected advice: %+v", advice)
	}
	if got.OwnerID != "alice" || got.TxHash != "abc" || got.DeclaredFee != 5000 {
		t.Fatalf("context did not round-trip: %+v", got)
	}
}

func TestAnalyzeEmptyRecommendationDefaultsToProceed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confidence":0.5}`))
	}))
	defer srv.Close()

	advice, err := NewHTTPAdvisor(srv.URL, time.Second).Analyze(context.Background(), Context{})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if advice.Recommendation != Proceed {
		t.Fatalf("expected proceed default, got %s", advice.Recommendation)
	}
}

func TestAnalyzeNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewHTTPAdvisor(srv.URL, time.Second).Analyze(context.Background(), Context{}); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}

func TestAnalyzeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	if _, err := NewHTTPAdvisor(srv.URL, 50*time.Millisecond).Analyze(context.Background(), Context{}); err == nil {
		t.Fatalf("expected transport error from closed server")
	}
}
