package domain

import "context"

// Stage pushes diagram images into the remote stage referenced by
// completion queries. Re-uploading a filename overwrites the staged copy.
type Stage interface {
	Upload(ctx context.Context, filename string, contents []byte) (StagedFile, error)
}

// Completer answers a question about a staged diagram using the remote
// multimodal completion function. The call is synchronous; whatever timeout
// the underlying client enforces applies.
type Completer interface {
	Complete(ctx context.Context, question string, stagedName string) (string, error)
}

// SessionStore defines session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
}

// TurnStore defines conversation-turn persistence. Turns are append-only
// and returned in insertion order.
type TurnStore interface {
	AppendTurns(ctx context.Context, turns ...*Turn) error
	GetTurnsBySession(ctx context.Context, sessionID SessionID, limit int) ([]*Turn, error)
	ClearTurns(ctx context.Context, sessionID SessionID) error
}
