package snowflake

import (
	"context"
	"fmt"

	"github.com/visionstage/diagram-agent/internal/domain"
	"github.com/visionstage/diagram-agent/internal/observability"
)

// CortexCompleter implements domain.Completer on top of the
// SNOWFLAKE.CORTEX.COMPLETE multimodal function. The model identifier, the
// question, and the staged filename all travel as bound parameters, so user
// text can never break out of the statement; only the config-validated
// stage name is interpolated.
type CortexCompleter struct {
	session *Session
	model   string
	query   string
}

// NewCortexCompleter validates the stage name and prepares the completion
// statement.
func NewCortexCompleter(session *Session, stage, model string) (*CortexCompleter, error) {
	if !stageNamePattern.MatchString(stage) {
		return nil, fmt.Errorf("invalid stage name %q", stage)
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &CortexCompleter{
		session: session,
		model:   model,
		query:   buildCompleteQuery(stage),
	}, nil
}

// buildCompleteQuery returns the completion statement for a stage. All
// value positions are placeholders.
func buildCompleteQuery(stage string) string {
	return fmt.Sprintf("SELECT SNOWFLAKE.CORTEX.COMPLETE(?, ?, TO_FILE('@%s', ?))", stage)
}

// completeArgs binds the statement parameters. The question is passed
// through verbatim; apostrophes and any other characters reach the model
// untouched.
func completeArgs(model, question, stagedName string) []any {
	return []any{model, question, stagedName}
}

// Complete implements domain.Completer. Synchronous and blocking: model
// inference latency is carried by the driver's round-trip, with no local
// timeout beyond the caller's context.
func (c *CortexCompleter) Complete(ctx context.Context, question string, stagedName string) (string, error) {
	log := observability.LoggerFromContext(ctx).With("model", c.model, "staged_file", stagedName)

	db, err := c.session.DB(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCompletion, err)
	}

	var answer string
	row := db.QueryRowContext(ctx, c.query, completeArgs(c.model, question, stagedName)...)
	if err := row.Scan(&answer); err != nil {
		log.Error("cortex completion failed", "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrCompletion, err)
	}

	if answer == "" {
		return "", fmt.Errorf("%w: empty response from model", domain.ErrCompletion)
	}

	return answer, nil
}
