package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ecdnaabc/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	tables      map[string]model.SummaryTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.tables = make(map[string]model.SummaryTable)
	return nil
}

func (s *MemoryStore) SaveSummaryTable(_ context.Context, table model.SummaryTable) error {
	if table.RunID == "" {
		return errors.New("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.tables[table.RunID] = cloneSummaryTable(table)
	return nil
}

func (s *MemoryStore) GetSummaryTable(_ context.Context, runID string) (model.SummaryTable, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, ok := s.tables[runID]
	if !ok {
		return model.SummaryTable{}, false, nil
	}
	return cloneSummaryTable(table), true, nil
}

func (s *MemoryStore) ListRunIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func cloneSummaryTable(table model.SummaryTable) model.SummaryTable {
	copied := table
	copied.Columns = append([]string(nil), table.Columns...)
	copied.Rows = make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		copied.Rows[i] = append([]string(nil), row...)
	}
	return copied
}
