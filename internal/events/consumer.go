package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/domain"
	"github.com/banking/underwriting-risk/internal/risk"
	"go.uber.org/zap"
)

// ExtractedDocumentEvent announces that the extraction collaborator has
// finished a document and it is ready for risk analysis.
type ExtractedDocumentEvent struct {
	DocumentID   string `json:"document_id"`
	UserID       string `json:"user_id"`
	DocumentType string `json:"document_type"`
}

// ProfileStore receives customer profile updates from the profile topic.
type ProfileStore interface {
	Upsert(ctx context.Context, profile *domain.CustomerProfile) error
}

type RiskConsumer struct {
	consumerGroup sarama.ConsumerGroup
	riskService   *risk.Service
	profiles      ProfileStore
	cfg           config.KafkaConfig
	topics        []string
	logger        *zap.Logger
}

func NewRiskConsumer(cfg config.KafkaConfig, riskService *risk.Service, profiles ProfileStore, logger *zap.Logger) (*RiskConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_8_0_0

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	topics := []string{cfg.ExtractedTopic, cfg.ProfileTopic}

	return &RiskConsumer{
		consumerGroup: consumerGroup,
		riskService:   riskService,
		profiles:      profiles,
		cfg:           cfg,
		topics:        topics,
		logger:        logger,
	}, nil
}

func (c *RiskConsumer) Start(ctx context.Context) error {
	handler := &riskConsumerHandler{
		riskService:    c.riskService,
		profiles:       c.profiles,
		extractedTopic: c.cfg.ExtractedTopic,
		profileTopic:   c.cfg.ProfileTopic,
		logger:         c.logger,
	}

	for {
		if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
			if ctx.Err() != nil {
				return nil // Context canceled
			}
			c.logger.Error("Error from consumer", zap.Error(err))
			time.Sleep(time.Second * 5) // Retry backoff
		}
	}
}

func (c *RiskConsumer) Close() error {
	return c.consumerGroup.Close()
}

type riskConsumerHandler struct {
	riskService    *risk.Service
	profiles       ProfileStore
	extractedTopic string
	profileTopic   string
	logger         *zap.Logger
}

func (h *riskConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *riskConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }
func (h *riskConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.processMessage(session.Context(), message)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *riskConsumerHandler) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	switch msg.Topic {
	case h.extractedTopic:
		h.handleExtracted(msg)
	case h.profileTopic:
		h.handleProfile(ctx, msg)
	default:
		h.logger.Warn("Message from unexpected topic", zap.String("topic", msg.Topic))
	}
}

// handleExtracted kicks off a supervised background analysis. The claim
// loop never blocks on the analysis itself; failures land in the
// dead-letter log inside the service.
func (h *riskConsumerHandler) handleExtracted(msg *sarama.ConsumerMessage) {
	var event ExtractedDocumentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("Failed to unmarshal extracted document event", zap.Error(err))
		return // Skip malformed
	}
	if event.DocumentID == "" {
		h.logger.Warn("Extracted document event missing document_id")
		return
	}

	h.logger.Info("Document ready for risk analysis",
		zap.String("document_id", event.DocumentID),
		zap.String("document_type", event.DocumentType),
	)
	h.riskService.AnalyzeAsync(event.DocumentID)
}

func (h *riskConsumerHandler) handleProfile(ctx context.Context, msg *sarama.ConsumerMessage) {
	var profile domain.CustomerProfile
	if err := json.Unmarshal(msg.Value, &profile); err != nil {
		h.logger.Error("Failed to unmarshal customer profile event", zap.Error(err))
		return
	}
	if profile.CustomerID == "" {
		h.logger.Warn("Customer profile event missing customer_id")
		return
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	// Retry mechanism for persistence
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		if err := h.profiles.Upsert(ctx, &profile); err != nil {
			h.logger.Error("Failed to store customer profile",
				zap.String("customer_id", profile.CustomerID),
				zap.Error(err),
				zap.Int("retry", i+1),
			)
			if i < maxRetries-1 {
				time.Sleep(time.Duration(i+1) * time.Second) // Simple backoff
				continue
			}
			h.logger.Error("Dropping profile after retries",
				zap.String("customer_id", profile.CustomerID))
		}
		break // Success
	}
}
