package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manash/roomedit/internal/cost"
	"github.com/manash/roomedit/internal/session"
	"github.com/manash/roomedit/pkg/models"
)

// Recorder writes session attempts to a Store, pricing successful ones.
type Recorder struct {
	store    *Store
	registry *models.ModelRegistry
	calc     *cost.Calculator
	now      func() time.Time
}

func NewRecorder(store *Store, registry *models.ModelRegistry) *Recorder {
	if registry == nil {
		registry = models.DefaultRegistry()
	}
	return &Recorder{
		store:    store,
		registry: registry,
		calc:     cost.NewCalculator(),
		now:      time.Now,
	}
}

func (r *Recorder) Record(ctx context.Context, a session.Attempt) error {
	now := r.now()
	if err := r.store.TouchSession(ctx, &Session{
		ID:        a.SessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Tier:      a.Tier.String(),
	}); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	gen := &Generation{
		ID:          uuid.New().String(),
		SessionID:   a.SessionID,
		Timestamp:   a.Started,
		Tier:        a.Tier.String(),
		Model:       a.Model,
		Mode:        a.Mode.String(),
		Prompt:      a.Prompt,
		AspectRatio: string(a.AspectRatio),
		Width:       a.Width,
		Height:      a.Height,
		Masked:      a.Masked,
		Referenced:  a.Referenced,
		Status:      StatusSucceeded,
		Duration:    a.Duration,
	}
	if a.Err != nil {
		gen.Status = StatusFailed
		gen.Error = a.Err.Error()
	}

	var price *models.CostInfo
	if cap, ok := r.registry.Get(a.Model); ok {
		gen.Metadata.ImageSize = cap.ImageSize
		gen.Metadata.Provider = string(cap.Provider)
		if a.Err == nil {
			price = r.calc.ForModel(cap, 1)
			gen.Metadata.Cost = price.Total
		}
	}

	if err := r.store.CreateGeneration(ctx, gen); err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}

	if price == nil {
		return nil
	}
	return r.store.LogCost(ctx, &CostEntry{
		GenerationID: gen.ID,
		SessionID:    a.SessionID,
		Provider:     gen.Metadata.Provider,
		Model:        a.Model,
		Cost:         price.Total,
		ImageCount:   1,
		Timestamp:    a.Started,
	})
}
