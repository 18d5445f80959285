package memory

import (
	"context"
	"sync"

	"github.com/visionstage/diagram-agent/internal/domain"
)

type TurnStore struct {
	mu    sync.RWMutex
	turns map[domain.SessionID][]*domain.Turn
}

func NewTurnStore() *TurnStore {
	return &TurnStore{
		turns: make(map[domain.SessionID][]*domain.Turn),
	}
}

func (s *TurnStore) AppendTurns(ctx context.Context, turns ...*domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, turn := range turns {
		s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	}
	return nil
}

func (s *TurnStore) GetTurnsBySession(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[sessionID]
	if limit > 0 && len(turns) > limit {
		return turns[len(turns)-limit:], nil
	}
	return turns, nil
}

func (s *TurnStore) ClearTurns(ctx context.Context, sessionID domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, sessionID)
	return nil
}
