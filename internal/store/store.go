// Package store persists positions and their monitoring history.
package store

import (
	"context"
	"time"

	"options-analyzer/internal/models"
)

// PositionStore defines the persistence contract for positions. The
// engine only relies on load-by-id and append-history semantics.
type PositionStore interface {
	// Positions
	SavePosition(ctx context.Context, pos *models.Position) error
	GetPosition(ctx context.Context, id string) (*models.Position, error)
	ListPositions(ctx context.Context, filter PositionFilter) ([]*models.Position, error)
	UpdateStatus(ctx context.Context, pos *models.Position) error

	// Monitoring history
	AppendPnLSample(ctx context.Context, positionID string, sample models.PnLSample) error
	SaveRuleState(ctx context.Context, positionID string, rules []models.AlertRule) error

	// Alert log
	LogAlert(ctx context.Context, event models.AlertEvent) error
	GetAlerts(ctx context.Context, positionID string, limit int) ([]models.AlertEvent, error)

	// Lifecycle
	Close() error
}

// PositionFilter narrows ListPositions results.
type PositionFilter struct {
	Underlying string
	Status     models.PositionStatus
	OpenedFrom time.Time
	OpenedTo   time.Time
	Limit      int
}
