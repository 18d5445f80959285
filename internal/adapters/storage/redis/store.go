package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/visionstage/diagram-agent/internal/domain"
)

const (
	sessionKeyPrefix = "diagram-session:"
	defaultTTL       = 24 * time.Hour
)

// Store persists sessions and their turns in Redis, one JSON document per
// session. It implements both domain.SessionStore and domain.TurnStore, so
// a single Store backs the whole conversation (same shape as using one
// document store for two interfaces).
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore wraps an existing Redis client. A non-positive ttl falls back to
// 24 hours; the TTL is refreshed on every read and write, so a session
// expires only after a day of inactivity.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// sessionDoc is the serialized session state. Version increases on every
// write; concurrent writers are serialized by WATCH, the version is kept
// for debugging.
type sessionDoc struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Version   int64      `json:"version"`
	Diagram   *stagedDoc `json:"diagram,omitempty"`
	Turns     []turnDoc  `json:"turns"`
}

type stagedDoc struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

type turnDoc struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) key(id domain.SessionID) string {
	return sessionKeyPrefix + string(id)
}

// CreateSession implements domain.SessionStore.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	doc := sessionDoc{
		ID:        string(session.ID),
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		Version:   1,
		Diagram:   toStagedDoc(session.Diagram),
		Turns:     []turnDoc{},
	}
	val, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.ID), val, s.ttl).Err()
}

// GetSession implements domain.SessionStore.
func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	doc, err := s.load(ctx, s.client, id)
	if err != nil {
		return nil, err
	}

	// Refresh TTL on read.
	_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()

	return toSession(doc), nil
}

// UpdateSession implements domain.SessionStore. Turns stored in the
// document are preserved; only the session fields change.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	return s.mutate(ctx, session.ID, func(doc *sessionDoc) {
		doc.UpdatedAt = session.UpdatedAt
		doc.Diagram = toStagedDoc(session.Diagram)
	})
}

// AppendTurns implements domain.TurnStore. All turns must belong to the
// same session.
func (s *Store) AppendTurns(ctx context.Context, turns ...*domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	sessionID := turns[0].SessionID
	for _, turn := range turns[1:] {
		if turn.SessionID != sessionID {
			return fmt.Errorf("turns span multiple sessions")
		}
	}
	return s.mutate(ctx, sessionID, func(doc *sessionDoc) {
		for _, turn := range turns {
			doc.Turns = append(doc.Turns, turnDoc{
				ID:        string(turn.ID),
				Author:    string(turn.Author),
				Text:      turn.Text,
				CreatedAt: turn.CreatedAt,
			})
		}
	})
}

// GetTurnsBySession implements domain.TurnStore.
func (s *Store) GetTurnsBySession(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Turn, error) {
	doc, err := s.load(ctx, s.client, sessionID)
	if err != nil {
		return nil, err
	}

	docs := doc.Turns
	if limit > 0 && len(docs) > limit {
		docs = docs[len(docs)-limit:]
	}

	turns := make([]*domain.Turn, 0, len(docs))
	for _, d := range docs {
		turns = append(turns, &domain.Turn{
			ID:        domain.TurnID(d.ID),
			SessionID: sessionID,
			Author:    domain.Role(d.Author),
			Text:      d.Text,
			CreatedAt: d.CreatedAt,
		})
	}
	return turns, nil
}

// ClearTurns implements domain.TurnStore.
func (s *Store) ClearTurns(ctx context.Context, sessionID domain.SessionID) error {
	return s.mutate(ctx, sessionID, func(doc *sessionDoc) {
		doc.Turns = []turnDoc{}
	})
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// mutate rewrites a session document under WATCH so concurrent writers to
// the same session cannot lose updates.
func (s *Store) mutate(ctx context.Context, id domain.SessionID, fn func(doc *sessionDoc)) error {
	key := s.key(id)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		doc, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		fn(doc)
		doc.Version++
		doc.UpdatedAt = time.Now()

		val, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, s.ttl)
			return nil
		})
		return err
	}, key)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, id domain.SessionID) (*sessionDoc, error) {
	val, err := c.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var doc sessionDoc
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func toStagedDoc(f *domain.StagedFile) *stagedDoc {
	if f == nil {
		return nil
	}
	return &stagedDoc{Name: f.Name, Ref: f.Ref}
}

func toSession(doc *sessionDoc) *domain.Session {
	sess := &domain.Session{
		ID:        domain.SessionID(doc.ID),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.Diagram != nil {
		sess.Diagram = &domain.StagedFile{Name: doc.Diagram.Name, Ref: doc.Diagram.Ref}
	}
	return sess
}
