package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Fanelemenzi/pholli-compare/internal/bus"
	"github.com/Fanelemenzi/pholli-compare/internal/cache"
	"github.com/Fanelemenzi/pholli-compare/internal/comparison"
	"github.com/Fanelemenzi/pholli-compare/internal/domain"
	"github.com/Fanelemenzi/pholli-compare/internal/repository"
)

func ptrFloat(f float64) *float64 { return &f }
func ptrBool(b bool) *bool        { return &b }

func newTestWorker(t *testing.T) (*Worker, *bus.ChannelBus, domain.Repository, *comparison.Manager) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "pholli-worker-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := comparison.NewManager(repo, cache.NewLRUCache(100), eventBus, domain.ComparisonConfig{}, logger)

	return NewWorker(eventBus, repo, manager, logger), eventBus, repo, manager
}

func seedSurveyAndPolicy(t *testing.T, repo domain.Repository) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	survey := &domain.Survey{
		ID:            "survey-001",
		InsuranceType: domain.InsuranceFuneral,
		Preferences: domain.PreferenceSet{
			domain.FeatureCoverAmount: domain.NumberValue(50000),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.SaveSurvey(ctx, survey); err != nil {
		t.Fatalf("SaveSurvey failed: %v", err)
	}

	policy := &domain.Policy{
		ID:            "policy-001",
		Name:          "Family Funeral Plan",
		InsuranceType: domain.InsuranceFuneral,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
		Features: &domain.PolicyFeatureRecord{
			PolicyID:      "policy-001",
			InsuranceType: domain.InsuranceFuneral,
			CoverAmount:   ptrFloat(30000),
			UpdatedAt:     now,
		},
	}
	if err := repo.SavePolicy(ctx, policy); err != nil {
		t.Fatalf("SavePolicy failed: %v", err)
	}
}

func TestWorkerStartAndStop(t *testing.T) {
	worker, _, _, _ := newTestWorker(t)

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stats := worker.GetStats()
	if stats.SubscriptionCount != 3 {
		t.Errorf("expected 3 subscriptions, got %d", stats.SubscriptionCount)
	}

	if err := worker.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	stats = worker.GetStats()
	if stats.SubscriptionCount != 0 {
		t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
	}
}

func TestWorkerRegeneratesOnPolicyUpdate(t *testing.T) {
	worker, eventBus, repo, manager := newTestWorker(t)
	seedSurveyAndPolicy(t, repo)
	ctx := context.Background()

	// Seed an initial result set.
	initial, err := manager.GenerateComparisons(ctx, "survey-001", false)
	if err != nil {
		t.Fatalf("GenerateComparisons failed: %v", err)
	}
	if len(initial) != 1 {
		t.Fatalf("expected 1 result, got %d", len(initial))
	}

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer worker.Stop()

	time.Sleep(50 * time.Millisecond)

	// Improve the policy's cover and announce the change.
	now := time.Now().UTC()
	features := &domain.PolicyFeatureRecord{
		PolicyID:      "policy-001",
		InsuranceType: domain.InsuranceFuneral,
		CoverAmount:   ptrFloat(60000),
		UpdatedAt:     now,
	}
	if err := repo.SavePolicyFeatures(ctx, features); err != nil {
		t.Fatalf("SavePolicyFeatures failed: %v", err)
	}

	payload, _ := json.Marshal(domain.PolicyUpdatedEvent{
		PolicyID:      "policy-001",
		InsuranceType: domain.InsuranceFuneral,
	})
	if err := eventBus.Publish(ctx, domain.TopicPolicyUpdated, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Wait for the regeneration to land.
	deadline := time.After(2 * time.Second)
	for {
		results, err := repo.GetResults(ctx, "survey-001")
		if err != nil {
			t.Fatalf("GetResults failed: %v", err)
		}
		if len(results) == 1 && results[0].ID != initial[0].ID {
			// Cover now exceeds the preference, so the score is perfect.
			if results[0].ScorePercent != 100.0 {
				t.Errorf("expected perfect score after update, got %.2f", results[0].ScorePercent)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for regeneration")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWorkerRegeneratesOnSurveyUpdate(t *testing.T) {
	worker, eventBus, repo, manager := newTestWorker(t)
	seedSurveyAndPolicy(t, repo)
	ctx := context.Background()

	initial, err := manager.GenerateComparisons(ctx, "survey-001", false)
	if err != nil {
		t.Fatalf("GenerateComparisons failed: %v", err)
	}

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer worker.Stop()

	time.Sleep(50 * time.Millisecond)

	payload, _ := json.Marshal(domain.SurveyUpdatedEvent{SurveyID: "survey-001"})
	if err := eventBus.Publish(ctx, domain.TopicSurveyUpdated, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		results, err := repo.GetResults(ctx, "survey-001")
		if err != nil {
			t.Fatalf("GetResults failed: %v", err)
		}
		if len(results) == 1 && results[0].ID != initial[0].ID {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for regeneration")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWorkerGeneratesOnComparisonRequest(t *testing.T) {
	worker, eventBus, repo, _ := newTestWorker(t)
	seedSurveyAndPolicy(t, repo)
	ctx := context.Background()

	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer worker.Stop()

	time.Sleep(50 * time.Millisecond)

	// No results exist yet. The request event alone should produce them.
	payload, _ := json.Marshal(domain.ComparisonRequestedEvent{SurveyID: "survey-001"})
	if err := eventBus.Publish(ctx, domain.TopicComparisonRequested, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		results, err := repo.GetResults(ctx, "survey-001")
		if err != nil {
			t.Fatalf("GetResults failed: %v", err)
		}
		if len(results) == 1 {
			if results[0].PolicyID != "policy-001" {
				t.Errorf("expected result for policy-001, got %s", results[0].PolicyID)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for generation")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestPolicyUpdatedEventParsing(t *testing.T) {
	event := domain.PolicyUpdatedEvent{
		PolicyID:      "policy-123",
		InsuranceType: domain.InsuranceHealth,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var parsed domain.PolicyUpdatedEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if parsed.PolicyID != event.PolicyID {
		t.Errorf("expected PolicyID '%s', got '%s'", event.PolicyID, parsed.PolicyID)
	}
	if parsed.InsuranceType != event.InsuranceType {
		t.Errorf("expected InsuranceType '%s', got '%s'", event.InsuranceType, parsed.InsuranceType)
	}
}
