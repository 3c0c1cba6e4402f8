// Package db provides SQLite-backed graph storage for Strand
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/strandmem/strand/pkg/types"
)

// DB wraps the SQLite database connection. It is the single durable store:
// role and project nodes, memory nodes, and all typed edges live here.
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", types.ErrStoreUnavailable, err)
	}

	// Single-writer engine: one connection keeps writes serialized and makes
	// ":memory:" stores behave (each pool connection would otherwise get its
	// own empty database).
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ping database: %v", types.ErrStoreUnavailable, err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: migrate: %v", types.ErrStoreUnavailable, err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the database schema
func (db *DB) migrate() error {
	schema := `
	-- Agent role nodes: one row per role, created lazily
	CREATE TABLE IF NOT EXISTS agent_roles (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);

	-- Project nodes: isolation boundary for project-scoped memories
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);

	-- Memory nodes. seq is the creation order index used by supersession
	-- detection instead of wall-clock time. The NOT NULL agent_role column
	-- is the ownership edge (exactly one owner per memory); the nullable
	-- project column is the scope edge (NULL means global scope).
	CREATE TABLE IF NOT EXISTS memories (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		agent_role TEXT NOT NULL REFERENCES agent_roles(id),
		project TEXT REFERENCES projects(id),
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		tags TEXT, -- JSON array
		confidence REAL NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		superseded INTEGER NOT NULL DEFAULT 0,
		metadata TEXT, -- JSON object
		created_at TEXT NOT NULL,
		accessed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(agent_role, project);
	CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);
	CREATE INDEX IF NOT EXISTS idx_memories_superseded ON memories(superseded);

	-- Typed directed edges between memories (similar_to, supersedes) or from
	-- a memory to an external code entity (references). Endpoint existence
	-- for memory-to-memory edges is checked at insert time; foreign keys
	-- cannot express the references case.
	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		from_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		to_id TEXT NOT NULL,
		type TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, type);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, type);

	-- Full-text index over memory content for keyword narrowing in the
	-- iterative retrieval path
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_memories USING fts5(
		content,
		category,
		tags,
		content=memories,
		content_rowid=seq
	);

	-- Triggers to keep FTS in sync
	CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
		INSERT INTO fts_memories(rowid, content, category, tags)
		VALUES (new.seq, new.content, new.category, new.tags);
	END;

	CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
		INSERT INTO fts_memories(fts_memories, rowid, content, category, tags)
		VALUES('delete', old.seq, old.content, old.category, old.tags);
	END;

	CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
		INSERT INTO fts_memories(fts_memories, rowid, content, category, tags)
		VALUES('delete', old.seq, old.content, old.category, old.tags);
		INSERT INTO fts_memories(rowid, content, category, tags)
		VALUES (new.seq, new.content, new.category, new.tags);
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}

// EnsureRole creates the agent role node if it does not exist yet
func (db *DB) EnsureRole(ctx context.Context, role types.AgentRole) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO agent_roles (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		string(role), time.Now().UTC().Format(time.RFC3339))
	return wrapErr(err)
}

// EnsureProject creates the project node if it does not exist yet
func (db *DB) EnsureProject(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO projects (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		id, time.Now().UTC().Format(time.RFC3339))
	return wrapErr(err)
}

// Demotion lowers an older memory's confidence when a newer memory
// supersedes it. Applied inside the same transaction as the new memory.
type Demotion struct {
	MemoryID string
	Factor   float64
	Floor    float64
}

// InsertMemoryGraph writes a memory and all its initial edges in one
// transaction: the memory row, its similar_to/supersedes edges, and the
// confidence demotions of superseded memories either all commit or none do.
func (db *DB) InsertMemoryGraph(ctx context.Context, m *types.Memory, edges []types.Edge, demotions []Demotion) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", types.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	tagsJSON, _ := json.Marshal(m.Tags)
	metaJSON, _ := json.Marshal(m.Metadata)

	var project interface{}
	if m.Project != "" {
		project = m.Project
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memories (id, agent_role, project, content, category, memory_type,
			tags, confidence, usage_count, superseded, metadata, created_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, string(m.AgentRole), project, m.Content, m.Category, string(m.Type),
		string(tagsJSON), m.Confidence, m.UsageCount, boolToInt(m.Superseded),
		string(metaJSON), m.CreatedAt.UTC().Format(time.RFC3339), m.AccessedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return wrapErr(err)
	}
	m.Seq, _ = res.LastInsertId()

	for _, e := range edges {
		if e.Type != types.EdgeReferences {
			// Reject edges to memories that do not exist.
			var exists int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM memories WHERE id = ?`, e.ToID).Scan(&exists); err != nil {
				return wrapErr(err)
			}
			if exists == 0 {
				return fmt.Errorf("%w: edge %s -> %s targets a missing memory", types.ErrConstraintViolation, e.FromID, e.ToID)
			}
		}
		if e.Type == types.EdgeSupersedes {
			// A memory may never transitively supersede itself.
			cyclic, err := db.hasSupersessionPathTx(ctx, tx, e.ToID, e.FromID)
			if err != nil {
				return err
			}
			if cyclic || e.FromID == e.ToID {
				return fmt.Errorf("%w: supersession cycle %s -> %s", types.ErrConstraintViolation, e.FromID, e.ToID)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO edges (id, from_id, to_id, type, weight, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.FromID, e.ToID, string(e.Type), e.Weight, e.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return wrapErr(err)
		}
	}

	for _, d := range demotions {
		_, err := tx.ExecContext(ctx,
			`UPDATE memories SET confidence = MAX(?, confidence * ?), superseded = 1 WHERE id = ?`,
			d.Floor, d.Factor, d.MemoryID)
		if err != nil {
			return wrapErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr(err)
	}
	return nil
}

// querier covers *sql.DB and *sql.Tx so read/write helpers can run either
// autocommitted or inside an enclosing transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is a transactional view over the store. Batch passes that issue many
// mutations use it so the whole pass commits or rolls back as one unit.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a transaction. The store runs on a single connection, so every
// operation until Commit or Rollback must go through the returned Tx.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", types.ErrStoreUnavailable, err)
	}
	return &Tx{tx: tx}, nil
}

// Commit makes the transaction's mutations durable
func (t *Tx) Commit() error {
	return wrapErr(t.tx.Commit())
}

// Rollback discards the transaction. Safe to call after Commit.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// ListMemories returns memories matching the filter within the transaction
func (t *Tx) ListMemories(ctx context.Context, f Filter) ([]*types.Memory, error) {
	return listMemories(ctx, t.tx, f)
}

// IncomingEdges returns edges of the given type pointing at a memory,
// within the transaction
func (t *Tx) IncomingEdges(ctx context.Context, memoryID string, edgeType types.EdgeType) ([]*types.Edge, error) {
	return queryEdges(ctx, t.tx, `to_id = ? AND type = ?`, memoryID, string(edgeType))
}

// SetSuperseded marks a memory as superseded within the transaction
func (t *Tx) SetSuperseded(ctx context.Context, id string) error {
	return setSuperseded(ctx, t.tx, id)
}

// PromoteToGlobal clears the scope edge within the transaction
func (t *Tx) PromoteToGlobal(ctx context.Context, id string) error {
	return promoteToGlobal(ctx, t.tx, id)
}

// DeleteMemory removes a memory and its edges within the transaction
func (t *Tx) DeleteMemory(ctx context.Context, id string) error {
	return deleteMemory(ctx, t.tx, id)
}

// GetMemory retrieves a memory by ID. Returns ErrNotFound if absent.
func (db *DB) GetMemory(ctx context.Context, id string) (*types.Memory, error) {
	row := db.conn.QueryRowContext(ctx, selectMemory+` WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: memory %s", types.ErrNotFound, id)
	}
	return m, nil
}

// Filter narrows a memory scan
type Filter struct {
	Role              types.AgentRole
	AllRoles          bool // Ignore Role: scan every owner (cross-role learning)
	Project           string
	AnyProject        bool // Ignore scope entirely (consolidation passes)
	IncludeGlobal     bool
	Category          string
	IncludeSuperseded bool
	Limit             int
}

const selectMemory = `SELECT seq, id, agent_role, project, content, category, memory_type,
	tags, confidence, usage_count, superseded, metadata, created_at, accessed_at FROM memories`

// ListMemories returns memories matching the filter, newest first
func (db *DB) ListMemories(ctx context.Context, f Filter) ([]*types.Memory, error) {
	return listMemories(ctx, db.conn, f)
}

func listMemories(ctx context.Context, q querier, f Filter) ([]*types.Memory, error) {
	where, args := f.clauses()

	query := selectMemory
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// CountMemories returns the number of memories matching the filter. The
// Memory Manager uses this to pick a retrieval strategy.
func (db *DB) CountMemories(ctx context.Context, f Filter) (int, error) {
	where, args := f.clauses()
	query := `SELECT COUNT(*) FROM memories`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

func (f Filter) clauses() ([]string, []interface{}) {
	var where []string
	var args []interface{}

	if !f.AllRoles && f.Role != "" {
		where = append(where, "agent_role = ?")
		args = append(args, string(f.Role))
	}
	if f.AnyProject {
		// No scope clause: consolidation scans every project and global rows.
	} else if f.Project != "" {
		if f.IncludeGlobal {
			where = append(where, "(project = ? OR project IS NULL)")
		} else {
			where = append(where, "project = ?")
		}
		args = append(args, f.Project)
	} else {
		// No project context: only global memories are visible. Other
		// projects' memories never leak across the isolation boundary.
		where = append(where, "project IS NULL")
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if !f.IncludeSuperseded {
		where = append(where, "superseded = 0")
	}
	return where, args
}

// Neighbors returns the memories reachable from id within the given number
// of hops over edges of the given type, in either direction. The start
// memory itself is not included.
func (db *DB) Neighbors(ctx context.Context, id string, hops int, edgeType types.EdgeType) ([]*types.Memory, error) {
	frontier := map[string]bool{id: true}
	visited := map[string]bool{id: true}

	for h := 0; h < hops && len(frontier) > 0; h++ {
		next := make(map[string]bool)
		for nodeID := range frontier {
			rows, err := db.conn.QueryContext(ctx, `
				SELECT from_id, to_id FROM edges WHERE type = ? AND (from_id = ? OR to_id = ?)`,
				string(edgeType), nodeID, nodeID)
			if err != nil {
				return nil, wrapErr(err)
			}
			for rows.Next() {
				var from, to string
				if err := rows.Scan(&from, &to); err != nil {
					rows.Close()
					return nil, wrapErr(err)
				}
				for _, other := range []string{from, to} {
					if !visited[other] {
						visited[other] = true
						next[other] = true
					}
				}
			}
			if err := rows.Err(); err != nil {
				rows.Close()
				return nil, wrapErr(err)
			}
			rows.Close()
		}
		frontier = next
	}

	delete(visited, id)
	if len(visited) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(visited))
	args := make([]interface{}, 0, len(visited))
	for nodeID := range visited {
		placeholders = append(placeholders, "?")
		args = append(args, nodeID)
	}

	rows, err := db.conn.QueryContext(ctx,
		selectMemory+` WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// IncomingEdges returns all edges of the given type pointing at a memory
func (db *DB) IncomingEdges(ctx context.Context, memoryID string, edgeType types.EdgeType) ([]*types.Edge, error) {
	return queryEdges(ctx, db.conn, `to_id = ? AND type = ?`, memoryID, string(edgeType))
}

// OutgoingEdges returns all edges of the given type starting at a memory
func (db *DB) OutgoingEdges(ctx context.Context, memoryID string, edgeType types.EdgeType) ([]*types.Edge, error) {
	return queryEdges(ctx, db.conn, `from_id = ? AND type = ?`, memoryID, string(edgeType))
}

func queryEdges(ctx context.Context, q querier, condition string, args ...interface{}) ([]*types.Edge, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, from_id, to_id, type, weight, created_at FROM edges WHERE `+condition, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var edges []*types.Edge
	for rows.Next() {
		var e types.Edge
		var edgeType, createdStr string
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &edgeType, &e.Weight, &createdStr); err != nil {
			return nil, wrapErr(err)
		}
		e.Type = types.EdgeType(edgeType)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

// InsertEdge writes a single edge outside of a memory-insert transaction.
// Used for manually created references links.
func (db *DB) InsertEdge(ctx context.Context, e *types.Edge) error {
	var exists int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE id = ?`, e.FromID).Scan(&exists); err != nil {
		return wrapErr(err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: source memory %s not found", types.ErrConstraintViolation, e.FromID)
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO edges (id, from_id, to_id, type, weight, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.FromID, e.ToID, string(e.Type), e.Weight, e.CreatedAt.UTC().Format(time.RFC3339))
	return wrapErr(err)
}

// HasSupersessionPath reports whether `to` is reachable from `from` by
// following supersedes edges. Used to keep the relation acyclic.
func (db *DB) HasSupersessionPath(ctx context.Context, from, to string) (bool, error) {
	return db.hasSupersessionPathTx(ctx, nil, from, to)
}

func (db *DB) hasSupersessionPathTx(ctx context.Context, tx *sql.Tx, from, to string) (bool, error) {
	var q querier = db.conn
	if tx != nil {
		q = tx
	}
	var n int
	err := q.QueryRowContext(ctx, `
		WITH RECURSIVE chain(id) AS (
			SELECT to_id FROM edges WHERE type = 'supersedes' AND from_id = ?
			UNION
			SELECT e.to_id FROM edges e JOIN chain c ON e.from_id = c.id
			WHERE e.type = 'supersedes'
		)
		SELECT COUNT(*) FROM chain WHERE id = ?`, from, to).Scan(&n)
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}

// TouchMemories increments usage counts and refreshes access times for
// recalled memories
func (db *DB) TouchMemories(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := make([]string, len(ids))
	args := []interface{}{now}
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	_, err := db.conn.ExecContext(ctx,
		`UPDATE memories SET usage_count = usage_count + 1, accessed_at = ? WHERE id IN (`+
			strings.Join(placeholders, ",")+`)`, args...)
	return wrapErr(err)
}

// SetSuperseded marks a memory as superseded
func (db *DB) SetSuperseded(ctx context.Context, id string) error {
	return setSuperseded(ctx, db.conn, id)
}

func setSuperseded(ctx context.Context, q querier, id string) error {
	_, err := q.ExecContext(ctx, `UPDATE memories SET superseded = 1 WHERE id = ?`, id)
	return wrapErr(err)
}

// PromoteToGlobal clears the scope edge so the memory is visible everywhere
func (db *DB) PromoteToGlobal(ctx context.Context, id string) error {
	return promoteToGlobal(ctx, db.conn, id)
}

func promoteToGlobal(ctx context.Context, q querier, id string) error {
	_, err := q.ExecContext(ctx, `UPDATE memories SET project = NULL WHERE id = ?`, id)
	return wrapErr(err)
}

// DeleteMemory removes a memory and every edge touching it
func (db *DB) DeleteMemory(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", types.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if err := deleteMemory(ctx, tx, id); err != nil {
		return err
	}
	return wrapErr(tx.Commit())
}

func deleteMemory(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
		return wrapErr(err)
	}
	_, err := q.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	return wrapErr(err)
}

// KeywordSearch performs a full-text match over memory content, returning
// memory IDs ranked by relevance. Query tokens are OR-ed together.
func (db *DB) KeywordSearch(ctx context.Context, tokens []string, limit int) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT m.id
		FROM fts_memories f
		JOIN memories m ON f.rowid = m.seq
		WHERE fts_memories MATCH ?
		ORDER BY rank
		LIMIT ?`, strings.Join(quoted, " OR "), limit)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats returns store statistics
func (db *DB) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	counts := map[string]string{
		"memories":   `SELECT COUNT(*) FROM memories`,
		"superseded": `SELECT COUNT(*) FROM memories WHERE superseded = 1`,
		"roles":      `SELECT COUNT(*) FROM agent_roles`,
		"projects":   `SELECT COUNT(*) FROM projects`,
		"similar_to": `SELECT COUNT(*) FROM edges WHERE type = 'similar_to'`,
		"supersedes": `SELECT COUNT(*) FROM edges WHERE type = 'supersedes'`,
		"references": `SELECT COUNT(*) FROM edges WHERE type = 'references'`,
	}
	for key, query := range counts {
		var n int
		if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, wrapErr(err)
		}
		stats[key] = n
	}
	return stats, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row *sql.Row) (*types.Memory, error) {
	m, err := scanMemoryFields(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(err)
	}
	return m, nil
}

func scanMemories(rows *sql.Rows) ([]*types.Memory, error) {
	var memories []*types.Memory
	for rows.Next() {
		m, err := scanMemoryFields(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func scanMemoryFields(row rowScanner) (*types.Memory, error) {
	var m types.Memory
	var role, memType, tagsJSON, metaJSON, createdStr, accessedStr string
	var project sql.NullString
	var superseded int

	err := row.Scan(&m.Seq, &m.ID, &role, &project, &m.Content, &m.Category, &memType,
		&tagsJSON, &m.Confidence, &m.UsageCount, &superseded, &metaJSON, &createdStr, &accessedStr)
	if err != nil {
		return nil, err
	}

	m.AgentRole = types.AgentRole(role)
	m.Type = types.MemoryType(memType)
	if project.Valid {
		m.Project = project.String
	}
	m.Superseded = superseded != 0
	json.Unmarshal([]byte(tagsJSON), &m.Tags)
	json.Unmarshal([]byte(metaJSON), &m.Metadata)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	m.AccessedAt, _ = time.Parse(time.RFC3339, accessedStr)

	return &m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// wrapErr maps driver errors onto the typed error taxonomy
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrConstraintViolation) || errors.Is(err, types.ErrStoreUnavailable) {
		return err
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", types.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
}
