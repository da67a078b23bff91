package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/domain"
)

func criticalAnomalies() *domain.AnomalyCollection {
	out := domain.NewAnomalyCollection()
	out.Add(domain.Anomaly{Type: "undeclared_loans", Reason: "contradiction", Severity: domain.SeverityCritical})
	return out
}

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestOpenAIReasonerEmptyEndpointUsesFallback(t *testing.T) {
	r := NewOpenAIReasoner(config.ReasoningConfig{}, zap.NewNop())

	out, err := r.Assess(context.Background(), domain.DocTypePAN, criticalAnomalies())
	require.NoError(t, err)
	assert.Equal(t, "rule_based", out.Source)
}

func TestOpenAIReasonerParsesCompletion(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatResponse(`{"summary":"Income contradiction found","fraud_indicators":["undeclared_loans"],"risk_factors":["CRITICAL: contradiction"],"recommendation":"REJECT","confidence":0.9}`)))
	}))
	defer server.Close()

	r := NewOpenAIReasoner(config.ReasoningConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
		Timeout:  5 * time.Second,
	}, zap.NewNop())

	out, err := r.Assess(context.Background(), domain.DocTypeBankStatement, criticalAnomalies())
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "llm", out.Source)
	assert.Equal(t, "Income contradiction found", out.Summary)
	assert.Equal(t, []string{"undeclared_loans"}, out.FraudIndicators)
	assert.Equal(t, "REJECT", out.Recommendation)
	assert.Equal(t, 0.9, out.Confidence)
}

func TestOpenAIReasonerFallsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	r := NewOpenAIReasoner(config.ReasoningConfig{Endpoint: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

	out, err := r.Assess(context.Background(), domain.DocTypePAN, criticalAnomalies())
	require.NoError(t, err)
	assert.Equal(t, "rule_based", out.Source)
}

func TestOpenAIReasonerFallsBackOnUnparsableContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(chatResponse("I think this document looks risky.")))
	}))
	defer server.Close()

	r := NewOpenAIReasoner(config.ReasoningConfig{Endpoint: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

	out, err := r.Assess(context.Background(), domain.DocTypePAN, criticalAnomalies())
	require.NoError(t, err)
	assert.Equal(t, "rule_based", out.Source)
}

func TestOpenAIReasonerClampsConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(chatResponse(`{"summary":"s","recommendation":"REVIEW","confidence":3.5}`)))
	}))
	defer server.Close()

	r := NewOpenAIReasoner(config.ReasoningConfig{Endpoint: server.URL, Timeout: 5 * time.Second}, zap.NewNop())

	out, err := r.Assess(context.Background(), domain.DocTypePAN, criticalAnomalies())
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Confidence)
	assert.Equal(t, "llm", out.Source)
}
