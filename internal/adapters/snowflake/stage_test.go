package snowflake

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
)

func TestNewStageUploaderRejectsBadStageNames(t *testing.T) {
	for _, stage := range []string{"", "bad name", "net-diagrams", "'quoted'"} {
		if _, err := NewStageUploader(nil, stage); err == nil {
			t.Errorf("stage %q: expected error, got nil", stage)
		}
	}
	if _, err := NewStageUploader(nil, "network_diagrams"); err != nil {
		t.Fatalf("valid stage rejected: %v", err)
	}
}

// flakyDriver hands out one shared connection whose first execs fail, as a
// suspended warehouse would.
type flakyDriver struct{ conn *flakyConn }

func (d *flakyDriver) Open(name string) (driver.Conn, error) { return d.conn, nil }

type flakyConn struct {
	failuresLeft int
	execs        int
}

func (c *flakyConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *flakyConn) Close() error { return nil }

func (c *flakyConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *flakyConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs++
	if c.failuresLeft > 0 {
		c.failuresLeft--
		return nil, errors.New("warehouse suspended")
	}
	return driver.RowsAffected(0), nil
}

func TestEnsureStageRetriesAfterTransientFailure(t *testing.T) {
	conn := &flakyConn{failuresLeft: 1}
	sql.Register("flakystage", &flakyDriver{conn: conn})
	db, err := sql.Open("flakystage", "")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	uploader, err := NewStageUploader(NewSession(SessionConfig{}), "network_diagrams")
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := uploader.ensureStage(ctx, db); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	if err := uploader.ensureStage(ctx, db); err != nil {
		t.Fatalf("retry after transient failure: %v", err)
	}

	// Success is memoized; no further DDL on later uploads.
	execsAfterSuccess := conn.execs
	if err := uploader.ensureStage(ctx, db); err != nil {
		t.Fatalf("call after success: %v", err)
	}
	if conn.execs != execsAfterSuccess {
		t.Fatalf("expected no DDL after success, got %d extra execs", conn.execs-execsAfterSuccess)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"diagram.png":            "diagram.png",
		"../../etc/passwd":       "passwd",
		"my diagram (v2).png":    "my_diagram__v2_.png",
		"sub/dir/topology.jpeg":  "topology.jpeg",
		"o'reilly's network.jpg": "o_reilly_s_network.jpg",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
