package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/domain"
	"go.uber.org/zap"
)

const systemPrompt = "You are a loan underwriting risk analyst. You will receive detected document " +
	"anomalies as JSON. Respond ONLY with compact JSON: {\"summary\": string, " +
	"\"fraud_indicators\": [string], \"risk_factors\": [string], " +
	"\"recommendation\": string, \"confidence\": number between 0 and 1}."

// OpenAIReasoner calls an OpenAI-compatible chat completions endpoint for
// a textual risk assessment. Any failure falls back to the rule-based
// reasoner so analysis never blocks on the collaborator.
type OpenAIReasoner struct {
	cfg      config.ReasoningConfig
	client   *http.Client
	fallback *RuleBased
	logger   *zap.Logger
}

// NewOpenAIReasoner creates a reasoner against the configured endpoint.
func NewOpenAIReasoner(cfg config.ReasoningConfig, logger *zap.Logger) *OpenAIReasoner {
	return &OpenAIReasoner{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		fallback: NewRuleBased(),
		logger:   logger,
	}
}

// Assess asks the LLM for an assessment, degrading to the rule-based
// reasoner on any transport, status, or parse failure.
func (r *OpenAIReasoner) Assess(ctx context.Context, docType domain.DocumentType, anomalies *domain.AnomalyCollection) (*domain.RiskReasoning, error) {
	if r.cfg.Endpoint == "" {
		return r.fallback.Assess(ctx, docType, anomalies)
	}

	out, err := r.call(ctx, docType, anomalies)
	if err != nil {
		r.logger.Warn("LLM reasoning failed, using rule-based fallback",
			zap.String("document_type", string(docType)), zap.Error(err))
		return r.fallback.Assess(ctx, docType, anomalies)
	}
	return out, nil
}

func (r *OpenAIReasoner) call(ctx context.Context, docType domain.DocumentType, anomalies *domain.AnomalyCollection) (*domain.RiskReasoning, error) {
	state, err := json.Marshal(map[string]interface{}{
		"document_type": docType,
		"anomalies":     anomalies,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal reasoning input: %w", err)
	}

	body, err := json.Marshal(map[string]interface{}{
		"model": r.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": string(state)},
		},
		"temperature": 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal reasoning request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build reasoning request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reasoning request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("reasoning endpoint returned status %d", resp.StatusCode)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode reasoning response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("reasoning response has no choices")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	var parsed struct {
		Summary         string   `json:"summary"`
		FraudIndicators []string `json:"fraud_indicators"`
		RiskFactors     []string `json:"risk_factors"`
		Recommendation  string   `json:"recommendation"`
		Confidence      float64  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse reasoning content: %w", err)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		parsed.Confidence = 0
	}

	return &domain.RiskReasoning{
		Summary:         parsed.Summary,
		FraudIndicators: parsed.FraudIndicators,
		RiskFactors:     parsed.RiskFactors,
		Recommendation:  parsed.Recommendation,
		Confidence:      parsed.Confidence,
		Source:          "llm",
	}, nil
}
