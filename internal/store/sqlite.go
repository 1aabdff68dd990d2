// 包 store 提供快照索引库（SQLite），用于 list/analyze 的快速查询。
// 权威数据始终是 JSON 快照文件，索引库可随时删除重建。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go-wiki-gap/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset 清空索引表（不删除数据库文件，不动快照文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM gaps`); err != nil {
		return fmt.Errorf("delete gaps: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	return nil
}

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
            category TEXT,
            taken_at TIMESTAMP,
            languages TEXT,
            pages INTEGER,
            partial INTEGER,
            path TEXT,
            created_at TIMESTAMP,
            UNIQUE(category, taken_at)
        );`,
		`CREATE TABLE IF NOT EXISTS gaps (
            category TEXT,
            taken_at TIMESTAMP,
            lang TEXT,
            missing INTEGER,
            UNIQUE(category, taken_at, lang)
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// IndexSnapshot 将一次快照写入索引（幂等：同键重复写入覆盖旧值）。
func (s *SQLite) IndexSnapshot(ctx context.Context, snap model.Snapshot, path string) error {
	partial := 0
	if snap.Partial {
		partial = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO snapshots(category, taken_at, languages, pages, partial, path, created_at)
        VALUES(?,?,?,?,?,?,?)
        ON CONFLICT(category, taken_at) DO UPDATE SET languages=excluded.languages, pages=excluded.pages, partial=excluded.partial, path=excluded.path`,
		snap.Category, snap.TakenAt, strings.Join(snap.Languages, "|"), len(snap.Records), partial, path, time.Now())
	if err != nil {
		return fmt.Errorf("index snapshot %s: %w", snap.Category, err)
	}
	for _, lang := range snap.Secondary() {
		_, err := s.db.ExecContext(ctx, `INSERT INTO gaps(category, taken_at, lang, missing)
            VALUES(?,?,?,?)
            ON CONFLICT(category, taken_at, lang) DO UPDATE SET missing=excluded.missing`,
			snap.Category, snap.TakenAt, lang, snap.Stats.Gaps[lang])
		if err != nil {
			return fmt.Errorf("index gaps %s/%s: %w", snap.Category, lang, err)
		}
	}
	return nil
}

// Run 为索引中的一次运行摘要。
type Run struct {
	Category  string
	TakenAt   time.Time
	Languages []string
	Pages     int
	Partial   bool
	Path      string
}

// ListRuns 返回全部运行记录，按时间升序。
func (s *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, taken_at, languages, pages, partial, path FROM snapshots ORDER BY taken_at ASC, category ASC`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// LatestRun 返回分类最近一次运行，无记录时返回 sql.ErrNoRows。
func (s *SQLite) LatestRun(ctx context.Context, category string) (Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, taken_at, languages, pages, partial, path FROM snapshots WHERE category = ? ORDER BY taken_at DESC LIMIT 1`, category)
	if err != nil {
		return Run{}, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Run{}, fmt.Errorf("iterate snapshots: %w", err)
		}
		return Run{}, sql.ErrNoRows
	}
	return scanRun(rows)
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var langs string
	var partial int
	var takenAt sql.NullTime
	if err := rows.Scan(&r.Category, &takenAt, &langs, &r.Pages, &partial, &r.Path); err != nil {
		return Run{}, fmt.Errorf("scan snapshots: %w", err)
	}
	if takenAt.Valid {
		r.TakenAt = takenAt.Time
	}
	if langs != "" {
		r.Languages = strings.Split(langs, "|")
	}
	r.Partial = partial != 0
	return r, nil
}
