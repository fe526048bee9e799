package storage

import (
	"context"
	"sync"

	"github.com/vultisig/tipjar/contexthelper"
	"github.com/vultisig/tipjar/internal/types"
)

// MemoryStorage keeps shell view state in process, for the terminal shell.
type MemoryStorage struct {
	mu     sync.Mutex
	states map[string]types.ShellState
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{states: make(map[string]types.ShellState)}
}

func (m *MemoryStorage) GetShellState(ctx context.Context, viewID string) (*types.ShellState, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[viewID]
	if !ok {
		return types.NewShellState(), nil
	}
	return &state, nil
}

func (m *MemoryStorage) SetShellState(ctx context.Context, viewID string, state *types.ShellState) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[viewID] = *state
	return nil
}

func (m *MemoryStorage) DeleteShellState(ctx context.Context, viewID string) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, viewID)
	return nil
}
