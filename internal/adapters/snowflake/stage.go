package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/visionstage/diagram-agent/internal/domain"
	"github.com/visionstage/diagram-agent/internal/observability"
)

// stageNamePattern matches unquoted Snowflake identifiers. Stage names come
// from configuration, never from user input, but they are interpolated into
// SQL text and must stay inside this alphabet.
var stageNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// StageUploader pushes diagram images into a named internal stage using the
// PUT command and resolves the staged filename with LIST.
type StageUploader struct {
	session *Session
	stage   string

	mu      sync.Mutex
	ensured bool
}

// NewStageUploader validates the stage name and returns an uploader bound
// to the shared session.
func NewStageUploader(session *Session, stage string) (*StageUploader, error) {
	if !stageNamePattern.MatchString(stage) {
		return nil, fmt.Errorf("invalid stage name %q", stage)
	}
	return &StageUploader{session: session, stage: stage}, nil
}

// Upload implements domain.Stage. The contents are written to a temp file
// carrying the upload's (sanitized) filename, PUT with OVERWRITE=TRUE so a
// re-upload replaces the staged copy, and confirmed via LIST.
func (u *StageUploader) Upload(ctx context.Context, filename string, contents []byte) (domain.StagedFile, error) {
	log := observability.LoggerFromContext(ctx).With("stage", u.stage)

	db, err := u.session.DB(ctx)
	if err != nil {
		return domain.StagedFile{}, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	if err := u.ensureStage(ctx, db); err != nil {
		return domain.StagedFile{}, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	name := sanitizeFilename(filename)
	localPath := filepath.Join(os.TempDir(), name)
	if err := os.WriteFile(localPath, contents, 0o600); err != nil {
		return domain.StagedFile{}, fmt.Errorf("%w: writing temp file: %v", domain.ErrUpload, err)
	}
	defer os.Remove(localPath)

	put := fmt.Sprintf("PUT 'file://%s' @%s OVERWRITE=TRUE AUTO_COMPRESS=FALSE",
		filepath.ToSlash(localPath), u.stage)
	if _, err := db.ExecContext(ctx, put); err != nil {
		log.Error("stage PUT failed", "error", err)
		return domain.StagedFile{}, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	stagedName, err := u.confirmUpload(ctx, db, name)
	if err != nil {
		return domain.StagedFile{}, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	log.Info("diagram staged", "filename", stagedName)

	return domain.StagedFile{
		Name: stagedName,
		Ref:  "@" + u.stage + "/" + stagedName,
	}, nil
}

// ensureStage creates the stage on first use. Server-side encryption and a
// directory table are both required before TO_FILE can reference staged
// files. Only success is remembered: the DDL is idempotent, so a transient
// failure here is retried on the next upload instead of poisoning the
// uploader for the rest of the process.
func (u *StageUploader) ensureStage(ctx context.Context, db *sql.DB) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.ensured {
		return nil
	}

	create := fmt.Sprintf(
		"CREATE STAGE IF NOT EXISTS %s ENCRYPTION = (TYPE = 'SNOWFLAKE_SSE')", u.stage)
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating stage: %w", err)
	}

	// Fails when the directory is already enabled; that is fine.
	alter := fmt.Sprintf("ALTER STAGE %s SET DIRECTORY = (ENABLE = TRUE)", u.stage)
	_, _ = db.ExecContext(ctx, alter)

	u.ensured = true
	return nil
}

// confirmUpload lists the stage and resolves the staged filename for the
// file we just PUT.
func (u *StageUploader) confirmUpload(ctx context.Context, db *sql.DB, name string) (string, error) {
	rows, err := db.QueryContext(ctx, "LIST @"+u.stage)
	if err != nil {
		return "", fmt.Errorf("listing stage: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("listing stage: %w", err)
	}

	for rows.Next() {
		fields := make([]any, len(cols))
		var path string
		fields[0] = &path
		for i := 1; i < len(cols); i++ {
			fields[i] = new(any)
		}
		if err := rows.Scan(fields...); err != nil {
			return "", fmt.Errorf("scanning stage listing: %w", err)
		}
		if base := path[strings.LastIndex(path, "/")+1:]; base == name {
			return base, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("listing stage: %w", err)
	}
	return "", fmt.Errorf("file %s not found in stage after upload", name)
}

// sanitizeFilename strips any path components and maps characters outside
// the safe alphabet to underscores so the name can travel through PUT,
// LIST, and TO_FILE untouched.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filepath.ToSlash(filename))
	return unsafeFilenameChars.ReplaceAllString(base, "_")
}
