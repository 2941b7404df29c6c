// Package storage is the SQLite check archive: campaign snapshots plus one
// row per URL check, appended after every run.
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/advertile/campwatch/pkg/campaign"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS campaigns (
  id            TEXT PRIMARY KEY,
  title         TEXT,
  status        TEXT,
  domain_id     TEXT,
  domain_name   TEXT,
  trackback_url TEXT,
  cost          REAL,
  revenue       REAL,
  updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS check_results (
  id           INTEGER PRIMARY KEY,
  campaign_id  TEXT NOT NULL,
  created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  kind         TEXT,
  ok           INTEGER NOT NULL CHECK (ok IN (0,1)),
  failure_type TEXT,
  message      TEXT,
  tested_url   TEXT,
  final_url    TEXT,
  http_status  INTEGER,
  elapsed_ms   INTEGER,
  page_title   TEXT
);
CREATE INDEX IF NOT EXISTS idx_checks_campaign ON check_results(campaign_id, created_at);
CREATE INDEX IF NOT EXISTS idx_checks_time ON check_results(created_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (db *DB) Close() error {
	return db.sql.Close()
}

// SaveRun upserts a snapshot per checked campaign and appends its check rows.
func (db *DB) SaveRun(ctx context.Context, results []campaign.Result) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO campaigns (id, title, status, domain_id, domain_name, trackback_url, cost, revenue, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  title = excluded.title,
  status = excluded.status,
  domain_id = excluded.domain_id,
  domain_name = excluded.domain_name,
  trackback_url = excluded.trackback_url,
  cost = excluded.cost,
  revenue = excluded.revenue,
  updated_at = excluded.updated_at`,
			r.Campaign.ID, r.Campaign.Title, r.Campaign.Status, r.Campaign.DomainID,
			r.Campaign.DomainName, r.Campaign.TrackingURL, r.Stats.Cost, r.Stats.Revenue, now,
		); err != nil {
			return err
		}

		for _, ch := range r.Checks {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO check_results (campaign_id, created_at, kind, ok, failure_type, message, tested_url, final_url, http_status, elapsed_ms, page_title)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.Campaign.ID, now, ch.Kind, boolToInt(ch.OK), ch.FailureType, ch.Message,
				ch.TestedURL, ch.FinalURL, ch.HTTPStatus, ch.ElapsedMs, ch.PageTitle,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// CheckRow is one archived URL check.
type CheckRow struct {
	CampaignID    string
	CampaignTitle string
	CreatedAt     time.Time
	Kind          string
	OK            bool
	FailureType   string
	Message       string
	TestedURL     string
	HTTPStatus    int
	ElapsedMs     int64
}

// LatestChecks returns the most recent archived checks, newest first.
func (db *DB) LatestChecks(ctx context.Context, limit int) ([]CheckRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.sql.QueryContext(ctx, `
SELECT cr.campaign_id, COALESCE(c.title, ''), cr.created_at, COALESCE(cr.kind, ''), cr.ok,
       COALESCE(cr.failure_type, ''), COALESCE(cr.message, ''), COALESCE(cr.tested_url, ''),
       COALESCE(cr.http_status, 0), COALESCE(cr.elapsed_ms, 0)
FROM check_results cr
LEFT JOIN campaigns c ON c.id = cr.campaign_id
ORDER BY cr.created_at DESC, cr.id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCheckRows(rows)
}

// CampaignChecks returns the archived checks for one campaign, newest first.
func (db *DB) CampaignChecks(ctx context.Context, campaignID string, limit int) ([]CheckRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.sql.QueryContext(ctx, `
SELECT cr.campaign_id, COALESCE(c.title, ''), cr.created_at, COALESCE(cr.kind, ''), cr.ok,
       COALESCE(cr.failure_type, ''), COALESCE(cr.message, ''), COALESCE(cr.tested_url, ''),
       COALESCE(cr.http_status, 0), COALESCE(cr.elapsed_ms, 0)
FROM check_results cr
LEFT JOIN campaigns c ON c.id = cr.campaign_id
WHERE cr.campaign_id = ?
ORDER BY cr.created_at DESC, cr.id DESC
LIMIT ?`, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCheckRows(rows)
}

func scanCheckRows(rows *sql.Rows) ([]CheckRow, error) {
	var out []CheckRow
	for rows.Next() {
		var r CheckRow
		var ok int
		if err := rows.Scan(&r.CampaignID, &r.CampaignTitle, &r.CreatedAt, &r.Kind, &ok,
			&r.FailureType, &r.Message, &r.TestedURL, &r.HTTPStatus, &r.ElapsedMs); err != nil {
			return nil, err
		}
		r.OK = ok == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
