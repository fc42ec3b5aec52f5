package storage

import (
	"context"

	"ecdnaabc/internal/model"
)

// Store persists the summary tables produced by summarise runs.
type Store interface {
	Init(ctx context.Context) error
	SaveSummaryTable(ctx context.Context, table model.SummaryTable) error
	GetSummaryTable(ctx context.Context, runID string) (model.SummaryTable, bool, error)
	ListRunIDs(ctx context.Context) ([]string, error)
}
