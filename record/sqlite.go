// Package record stores simulated accesses and run counters outside the
// process.
package record

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/sim"
)

// DefaultBatchSize is the number of events buffered before a flush.
const DefaultBatchSize = 100000

// SQLiteRecorder writes every access into the accesses table of a SQLite
// database. uint64 columns are stored as their int64 bit pattern, since
// SQLite integers are signed.
type SQLiteRecorder struct {
	db        *sql.DB
	path      string
	batchSize int
	pending   []sim.Event
	closed    bool
}

// NewSQLiteRecorder creates a new database at path. An empty path picks a
// unique name in the working directory. An existing file is never
// overwritten.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = "csim_" + xid.New().String() + ".sqlite3"
	}

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &SQLiteRecorder{
		db:        db,
		path:      path,
		batchSize: DefaultBatchSize,
	}

	if err := r.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", path)

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

// Path returns the database file name.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// SetBatchSize changes how many events are buffered before a flush.
func (r *SQLiteRecorder) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	r.batchSize = n
}

func (r *SQLiteRecorder) createTable() error {
	_, err := r.db.Exec(`CREATE TABLE accesses (
	seq INTEGER PRIMARY KEY,
	op TEXT NOT NULL,
	address INTEGER NOT NULL,
	size INTEGER NOT NULL,
	tag INTEGER NOT NULL,
	set_index INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	evicted_tag INTEGER,
	extra_hit INTEGER NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("failed to create accesses table: %w", err)
	}
	return nil
}

// Record buffers one event.
func (r *SQLiteRecorder) Record(event sim.Event) error {
	if r.closed {
		return fmt.Errorf("recorder for %s is closed", r.path)
	}

	r.pending = append(r.pending, event)
	if len(r.pending) >= r.batchSize {
		return r.Flush()
	}
	return nil
}

// Flush writes all buffered events in one transaction.
func (r *SQLiteRecorder) Flush() error {
	if r.closed || len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO accesses
	(seq, op, address, size, tag, set_index, outcome, evicted_tag, extra_hit)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range r.pending {
		var evicted any
		if e.Kind == cache.Miss {
			evicted = int64(e.EvictedTag)
		}

		_, err := stmt.Exec(
			int64(e.Seq),
			e.Op.Name(),
			int64(e.Address),
			int64(e.Size),
			int64(e.Tag),
			int64(e.Set),
			e.Kind.String(),
			evicted,
			e.ExtraHit,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert access %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit accesses: %w", err)
	}

	r.pending = r.pending[:0]
	return nil
}

// Close flushes and closes the database.
func (r *SQLiteRecorder) Close() error {
	if r.closed {
		return nil
	}

	err := r.Flush()
	r.closed = true

	if closeErr := r.db.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close database: %w", closeErr)
	}
	return err
}
