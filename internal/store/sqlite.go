package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/xtding233/gacha-stage/internal/gacha"
	"github.com/xtding233/gacha-stage/internal/progression"
)

// SQLite persists progression in a single database file.
type SQLite struct {
	sql *sql.DB
}

var _ Store = (*SQLite)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id           TEXT PRIMARY KEY,
  display_name TEXT NOT NULL DEFAULT '',
  active_set   TEXT NOT NULL DEFAULT '',
  carry_over   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS catalog (
  id               INTEGER PRIMARY KEY,
  name             TEXT NOT NULL,
  set_name         TEXT NOT NULL,
  rarity           TEXT NOT NULL CHECK (rarity IN ('UR','SSR','SR','R','N')),
  pulled           INTEGER NOT NULL DEFAULT 0,
  image_path       TEXT NOT NULL DEFAULT '',
  shiny_image_path TEXT NOT NULL DEFAULT '',
  enabled          INTEGER NOT NULL DEFAULT 0 CHECK (enabled IN (0,1)),
  UNIQUE(set_name, name)
);
CREATE INDEX IF NOT EXISTS idx_catalog_set ON catalog(set_name);
CREATE TABLE IF NOT EXISTS user_pulls (
  user_id    TEXT NOT NULL REFERENCES users(id),
  entry_id   INTEGER NOT NULL REFERENCES catalog(id),
  pull_count INTEGER NOT NULL DEFAULT 0,
  is_shiny   INTEGER NOT NULL DEFAULT 0 CHECK (is_shiny IN (0,1)),
  PRIMARY KEY(user_id, entry_id)
);
CREATE TABLE IF NOT EXISTS completed_sets (
  user_id      TEXT NOT NULL REFERENCES users(id),
  set_name     TEXT NOT NULL,
  completed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(user_id, set_name)
);
`

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{sql: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

func (s *SQLite) CreateUser(ctx context.Context, u progression.User) error {
	_, err := s.sql.ExecContext(ctx, `INSERT INTO users(id, display_name, active_set, carry_over) VALUES(?,?,?,?)
ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name`,
		u.ID, u.DisplayName, normalizeSet(u.ActiveSet), u.CarryOver)
	return err
}

func (s *SQLite) AddEntry(ctx context.Context, e progression.CatalogEntry) (progression.CatalogEntry, error) {
	e.Set = normalizeSet(e.Set)
	row := s.sql.QueryRowContext(ctx, `INSERT INTO catalog(name, set_name, rarity, image_path, shiny_image_path, enabled) VALUES(?,?,?,?,?,?)
ON CONFLICT(set_name, name) DO UPDATE SET rarity = excluded.rarity, image_path = excluded.image_path,
  shiny_image_path = CASE WHEN excluded.shiny_image_path != '' THEN excluded.shiny_image_path ELSE catalog.shiny_image_path END,
  enabled = excluded.enabled
RETURNING id, pulled`,
		e.Name, e.Set, string(e.Rarity), e.ImagePath, e.ShinyImagePath, boolToInt(e.Enabled))
	if err := row.Scan(&e.ID, &e.Pulled); err != nil {
		return progression.CatalogEntry{}, fmt.Errorf("add entry %q: %w", e.Name, err)
	}
	return e, nil
}

func (s *SQLite) SetEnabled(ctx context.Context, set string, enabled bool) error {
	_, err := s.sql.ExecContext(ctx, `UPDATE catalog SET enabled = ? WHERE set_name = ?`, boolToInt(enabled), normalizeSet(set))
	return err
}

func (s *SQLite) GetUser(ctx context.Context, userID string) (progression.User, error) {
	var u progression.User
	err := s.sql.QueryRowContext(ctx, `SELECT id, display_name, active_set, carry_over FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.DisplayName, &u.ActiveSet, &u.CarryOver)
	if errors.Is(err, sql.ErrNoRows) {
		return progression.User{}, fmt.Errorf("user %q: %w", userID, progression.ErrUnknownUser)
	}
	return u, err
}

func (s *SQLite) SetCarryOver(ctx context.Context, userID string, units int) error {
	return s.updateUser(ctx, userID, `UPDATE users SET carry_over = ? WHERE id = ?`, units)
}

func (s *SQLite) SetActiveSet(ctx context.Context, userID, set string) error {
	return s.updateUser(ctx, userID, `UPDATE users SET active_set = ? WHERE id = ?`, normalizeSet(set))
}

func (s *SQLite) updateUser(ctx context.Context, userID, query string, value any) error {
	res, err := s.sql.ExecContext(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %q: %w", userID, progression.ErrUnknownUser)
	}
	return nil
}

func (s *SQLite) EnabledSets(ctx context.Context) ([]string, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT DISTINCT set_name FROM catalog WHERE enabled = 1 ORDER BY set_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sets []string
	for rows.Next() {
		var set string
		if err := rows.Scan(&set); err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (s *SQLite) CatalogEntries(ctx context.Context, set string) ([]progression.CatalogEntry, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT id, name, set_name, rarity, pulled, image_path, shiny_image_path, enabled
FROM catalog WHERE set_name = ? ORDER BY id`, normalizeSet(set))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []progression.CatalogEntry
	for rows.Next() {
		var (
			e       progression.CatalogEntry
			rarity  string
			enabled int
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Set, &rarity, &e.Pulled, &e.ImagePath, &e.ShinyImagePath, &enabled); err != nil {
			return nil, err
		}
		e.Rarity = gacha.Tier(rarity)
		e.Enabled = enabled == 1
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) ProgressionState(ctx context.Context, userID, set string) (progression.ProgressionState, error) {
	set = normalizeSet(set)
	if _, err := s.GetUser(ctx, userID); err != nil {
		return progression.ProgressionState{}, err
	}
	st := progression.ProgressionState{UserID: userID, Set: set, Levels: make(map[int64]int)}
	rows, err := s.sql.QueryContext(ctx, `SELECT p.entry_id, p.pull_count FROM user_pulls p
JOIN catalog c ON c.id = p.entry_id
WHERE p.user_id = ? AND c.set_name = ?`, userID, set)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    int64
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return st, err
		}
		st.Levels[id] = count
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	var done int
	err = s.sql.QueryRowContext(ctx, `SELECT COUNT(1) FROM completed_sets WHERE user_id = ? AND set_name = ?`, userID, set).Scan(&done)
	st.Completed = done > 0
	return st, err
}

// IncrementPullCount upserts the user's row and bumps the catalog counter in one transaction.
func (s *SQLite) IncrementPullCount(ctx context.Context, userID string, entryID int64, shiny bool) (level int, err error) {
	tx, err := s.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE catalog SET pulled = pulled + 1 WHERE id = ?`, entryID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: entry %d", ErrNotFound, entryID)
		return 0, err
	}
	err = tx.QueryRowContext(ctx, `INSERT INTO user_pulls(user_id, entry_id, pull_count, is_shiny) VALUES(?,?,1,?)
ON CONFLICT(user_id, entry_id) DO UPDATE SET pull_count = user_pulls.pull_count + 1,
  is_shiny = MAX(user_pulls.is_shiny, excluded.is_shiny)
RETURNING pull_count`, userID, entryID, boolToInt(shiny)).Scan(&level)
	if err != nil {
		if _, uerr := s.GetUser(ctx, userID); errors.Is(uerr, progression.ErrUnknownUser) {
			err = uerr
		}
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return level, nil
}

func (s *SQLite) MarkSetCompleted(ctx context.Context, userID, set string) error {
	_, err := s.sql.ExecContext(ctx, `INSERT INTO completed_sets(user_id, set_name) VALUES(?,?) ON CONFLICT DO NOTHING`, userID, normalizeSet(set))
	return err
}

func (s *SQLite) HasShiny(ctx context.Context, userID string, entryID int64) (bool, error) {
	var shiny int
	err := s.sql.QueryRowContext(ctx, `SELECT is_shiny FROM user_pulls WHERE user_id = ? AND entry_id = ?`, userID, entryID).Scan(&shiny)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return shiny == 1, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
