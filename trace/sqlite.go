package trace

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	_ "modernc.org/sqlite"
)

const (
	kindVar  = "var"
	kindStat = "stat"
)

// Info describes a stored trace.
type Info struct {
	ID        string
	Name      string
	Chains    int
	Draws     int
	CreatedAt time.Time
}

// SQLiteStore persists traces in a SQLite database. Draws are stored as
// binary-marshalled gonum matrices, one row per chain and variable.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveTrace stores t under a new id and returns the id.
func (s *SQLiteStore) SaveTrace(ctx context.Context, name string, t *Trace) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}
	if t.NChains() == 0 {
		return "", errors.New("trace has no chains")
	}

	id := uuid.NewString()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO traces (id, name, chains, draws, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, name, t.NChains(), t.Len(), time.Now().UTC().UnixNano())
	if err != nil {
		return "", err
	}

	for pos, v := range t.Vars {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trace_vars (trace_id, position, name, shape)
			VALUES (?, ?, ?, ?)
		`, id, pos, v.Name, encodeShape(v.Shape))
		if err != nil {
			return "", err
		}
	}

	for _, c := range t.Chains {
		for _, v := range t.Vars {
			m, err := c.Values(v.Name)
			if err != nil {
				return "", errors.Wrapf(err, "chain %d", c.ID)
			}
			payload, err := m.MarshalBinary()
			if err != nil {
				return "", errors.Wrapf(err, "encode %q chain %d", v.Name, c.ID)
			}
			if err := insertPayload(ctx, tx, id, c.ID, kindVar, v.Name, payload); err != nil {
				return "", err
			}
		}
		for _, name := range c.StatNames() {
			values, _ := c.Stat(name)
			if len(values) == 0 {
				continue
			}
			payload, err := mat.NewVecDense(len(values), values).MarshalBinary()
			if err != nil {
				return "", errors.Wrapf(err, "encode stat %q chain %d", name, c.ID)
			}
			if err := insertPayload(ctx, tx, id, c.ID, kindStat, name, payload); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// LoadTrace reads a stored trace. The boolean is false when id is unknown.
func (s *SQLiteStore) LoadTrace(ctx context.Context, id string) (*Trace, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traces WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	vars, err := loadVars(ctx, db, id)
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT chain, kind, name, payload FROM trace_values
		WHERE trace_id = ?
		ORDER BY chain, kind DESC, name
	`, id)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	t := New(vars)
	var current *Chain
	flush := func() error {
		if current == nil {
			return nil
		}
		return t.AddChain(current)
	}
	for rows.Next() {
		var (
			chain      int
			kind, name string
			payload    []byte
		)
		if err := rows.Scan(&chain, &kind, &name, &payload); err != nil {
			return nil, false, err
		}
		if current == nil || current.ID != chain {
			if err := flush(); err != nil {
				return nil, false, err
			}
			current = NewChain(chain, vars)
		}
		switch kind {
		case kindVar:
			var m mat.Dense
			if err := m.UnmarshalBinary(payload); err != nil {
				return nil, false, errors.Wrapf(err, "decode %q chain %d", name, chain)
			}
			if err := current.SetValues(name, &m); err != nil {
				return nil, false, err
			}
		case kindStat:
			var v mat.VecDense
			if err := v.UnmarshalBinary(payload); err != nil {
				return nil, false, errors.Wrapf(err, "decode stat %q chain %d", name, chain)
			}
			current.SetStat(name, v.RawVector().Data)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if err := flush(); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// ListTraces returns the stored traces, newest first.
func (s *SQLiteStore) ListTraces(ctx context.Context) ([]Info, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, chains, draws, created_at FROM traces
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var (
			info    Info
			created int64
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.Chains, &info.Draws, &created); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func insertPayload(ctx context.Context, tx *sql.Tx, id string, chain int, kind, name string, payload []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trace_values (trace_id, chain, kind, name, payload)
		VALUES (?, ?, ?, ?, ?)
	`, id, chain, kind, name, payload)
	return err
}

func loadVars(ctx context.Context, db *sql.DB, id string) ([]Var, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name, shape FROM trace_vars WHERE trace_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vars []Var
	for rows.Next() {
		var name, shape string
		if err := rows.Scan(&name, &shape); err != nil {
			return nil, err
		}
		dims, err := decodeShape(shape)
		if err != nil {
			return nil, errors.Wrapf(err, "shape of %q", name)
		}
		vars = append(vars, Var{Name: name, Shape: dims})
	}
	return vars, rows.Err()
}

func encodeShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

func decodeShape(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	shape := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		shape[i] = n
	}
	return shape, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			chains INTEGER NOT NULL,
			draws INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS trace_vars (
			trace_id TEXT NOT NULL REFERENCES traces(id),
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			shape TEXT NOT NULL,
			PRIMARY KEY (trace_id, position)
		);
		CREATE TABLE IF NOT EXISTS trace_values (
			trace_id TEXT NOT NULL REFERENCES traces(id),
			chain INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (trace_id, chain, kind, name)
		);
	`)
	return err
}
