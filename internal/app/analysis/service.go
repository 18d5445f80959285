package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/visionstage/diagram-agent/internal/domain"
	"github.com/visionstage/diagram-agent/internal/observability"
)

// Service runs the upload-and-ask pipeline: stage a diagram, query the
// multimodal completion function about it, and keep the conversation
// history. Each user action is one synchronous run; nothing is retried.
type Service struct {
	stage        domain.Stage
	completer    domain.Completer
	sessionStore domain.SessionStore
	turnStore    domain.TurnStore
	now          func() time.Time
}

func NewService(
	stage domain.Stage,
	completer domain.Completer,
	sessionStore domain.SessionStore,
	turnStore domain.TurnStore,
) *Service {
	return &Service{
		stage:        stage,
		completer:    completer,
		sessionStore: sessionStore,
		turnStore:    turnStore,
		now:          time.Now,
	}
}

// StartSession creates an empty session: no diagram, no history.
func (s *Service) StartSession(ctx context.Context) (*domain.Session, error) {
	now := s.now()
	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to create session", "error", err)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info("session started", "session_id", session.ID)
	return session, nil
}

// UploadDiagram validates and stages an image, then makes it the session's
// active diagram. A session holds at most one staged reference: a new
// upload replaces the old one, and a failed upload leaves it untouched.
func (s *Service) UploadDiagram(
	ctx context.Context,
	sessionID domain.SessionID,
	filename string,
	contents []byte,
) (*domain.Session, error) {
	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"filename", filename,
		"size_bytes", len(contents),
	)

	if err := domain.ValidateDiagram(filename, contents); err != nil {
		log.Warn("diagram rejected", "error", err)
		return nil, err
	}

	staged, err := s.stage.Upload(ctx, filename, contents)
	if err != nil {
		log.Error("diagram upload failed", "error", err)
		return nil, err
	}

	session.Diagram = &staged
	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	log.Info("diagram uploaded", "staged_ref", staged.Ref)
	return session, nil
}

type AskOutput struct {
	Question *domain.Turn
	Answer   *domain.Turn
}

// Ask sends a question about the session's staged diagram to the completion
// function. The turn pair is recorded only after a successful answer, so a
// failed completion leaves the history exactly as it was.
func (s *Service) Ask(ctx context.Context, sessionID domain.SessionID, question string) (*AskOutput, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Diagram == nil {
		return nil, domain.ErrNoDiagram
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"staged_ref", session.Diagram.Ref,
	)
	log.Info("asking about diagram", "question", question)

	answer, err := s.completer.Complete(ctx, question, session.Diagram.Name)
	if err != nil {
		log.Error("completion failed", "error", err)
		return nil, err
	}

	now := s.now()
	questionTurn := &domain.Turn{
		ID:        domain.TurnID(uuid.NewString()),
		SessionID: session.ID,
		Author:    domain.RoleUser,
		Text:      question,
		CreatedAt: now,
	}
	answerTurn := &domain.Turn{
		ID:        domain.TurnID(uuid.NewString()),
		SessionID: session.ID,
		Author:    domain.RoleAssistant,
		Text:      answer,
		CreatedAt: now,
	}

	if err := s.turnStore.AppendTurns(ctx, questionTurn, answerTurn); err != nil {
		log.Error("failed to record turns", "error", err)
		return nil, err
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	log.Info("question answered")
	return &AskOutput{Question: questionTurn, Answer: answerTurn}, nil
}

// Timeline returns the session and its ordered turns. A pure projection of
// stored state.
func (s *Service) Timeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Turn, error) {
	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	turns, err := s.turnStore.GetTurnsBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, nil, err
	}

	return session, turns, nil
}

// ClearHistory empties the conversation. The staged diagram stays active,
// so the user can keep asking about it.
func (s *Service) ClearHistory(ctx context.Context, sessionID domain.SessionID) error {
	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return err
	}

	if err := s.turnStore.ClearTurns(ctx, sessionID); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to clear turns", "error", err)
		return err
	}

	observability.LoggerFromContext(ctx).Info("history cleared", "session_id", sessionID)
	return nil
}
