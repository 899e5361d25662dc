// Package worker provides async event processing for the comparison pipeline.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/comparison"
	"github.com/Fanelemenzi/pholli-compare/internal/domain"
)

// Worker keeps stored comparison results current: when a policy or survey
// changes, every affected survey is re-scored and re-ranked in the background.
type Worker struct {
	bus     domain.EventBus
	repo    domain.Repository
	manager *comparison.Manager
	logger  *slog.Logger

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new background worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, manager *comparison.Manager, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		repo:    repo,
		manager: manager,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the update topics.
func (w *Worker) Start() error {
	policySub, err := w.bus.Subscribe(w.ctx, domain.TopicPolicyUpdated, w.handlePolicyUpdated)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, policySub)

	surveySub, err := w.bus.Subscribe(w.ctx, domain.TopicSurveyUpdated, w.handleSurveyUpdated)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, surveySub)

	requestSub, err := w.bus.Subscribe(w.ctx, domain.TopicComparisonRequested, w.handleComparisonRequested)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, requestSub)

	w.logger.Info("worker started",
		"topics", []string{domain.TopicPolicyUpdated, domain.TopicSurveyUpdated, domain.TopicComparisonRequested},
	)
	return nil
}

// handlePolicyUpdated re-scores every survey that holds results for the
// changed policy.
func (w *Worker) handlePolicyUpdated(ctx context.Context, msg *domain.Message) error {
	var event domain.PolicyUpdatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.logger.Error("failed to parse policy updated event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	start := time.Now()

	surveyIDs, err := w.repo.SurveyIDsWithResultsFor(ctx, event.PolicyID)
	if err != nil {
		w.logger.Error("failed to find affected surveys",
			"policy_id", event.PolicyID,
			"error", err,
		)
		return err
	}

	regenerated := 0
	for _, surveyID := range surveyIDs {
		if _, err := w.manager.GenerateComparisons(ctx, surveyID, true); err != nil {
			w.logger.Error("failed to regenerate comparisons",
				"survey_id", surveyID,
				"policy_id", event.PolicyID,
				"error", err,
			)
			continue
		}
		regenerated++
	}

	w.logger.Info("policy update processed",
		"policy_id", event.PolicyID,
		"affected_surveys", len(surveyIDs),
		"regenerated", regenerated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// handleSurveyUpdated re-scores a single survey after its preferences change.
func (w *Worker) handleSurveyUpdated(ctx context.Context, msg *domain.Message) error {
	var event domain.SurveyUpdatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.logger.Error("failed to parse survey updated event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if _, err := w.manager.GenerateComparisons(ctx, event.SurveyID, true); err != nil {
		w.logger.Error("failed to regenerate comparisons",
			"survey_id", event.SurveyID,
			"error", err,
		)
		return err
	}

	w.logger.Info("survey update processed",
		"survey_id", event.SurveyID,
	)
	return nil
}

// handleComparisonRequested scores a survey on demand, typically from a
// producer outside the HTTP API.
func (w *Worker) handleComparisonRequested(ctx context.Context, msg *domain.Message) error {
	var event domain.ComparisonRequestedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.logger.Error("failed to parse comparison requested event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	results, err := w.manager.GenerateComparisons(ctx, event.SurveyID, event.Force)
	if err != nil {
		w.logger.Error("failed to generate comparisons",
			"survey_id", event.SurveyID,
			"error", err,
		)
		return err
	}

	w.logger.Info("comparison request processed",
		"survey_id", event.SurveyID,
		"result_count", len(results),
	)
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.logger.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
