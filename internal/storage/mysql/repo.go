package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	gomysql "github.com/go-sql-driver/mysql"

	"hotel_bookings/internal/domain"
)

// column widths, in bytes; values are cut on a rune boundary to fit
const (
	maxReason      = 1024
	maxDestination = 255
)

// Open connects to MySQL. parseTime is forced on because the audit rows carry
// TIMESTAMP columns that are scanned into time.Time.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	conn, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(conn), nil
}

func parseDSN(dsn string) (*gomysql.Config, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse MYSQL_DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg, nil
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Repo is the search audit log.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) LogSearch(ctx context.Context, e domain.SearchEvent) error {
	cons, err := json.Marshal(e.Constraints)
	if err != nil {
		return fmt.Errorf("marshal constraints: %w", err)
	}
	var dest *string
	if d, ok := e.Constraints.Destination.Get(); ok && d != "" {
		d = truncate(d, maxDestination)
		dest = &d
	}
	_, err = r.db.ExecContext(ctx, insertSearchSQL,
		e.ClientID,
		valStr(dest),
		string(cons),
		e.Fetched,
		e.Shown,
		e.Duration.Milliseconds(),
	)
	return err
}

func (r *Repo) LogFetchFailure(ctx context.Context, clientID, reason string) error {
	_, err := r.db.ExecContext(ctx, insertFailureSQL, clientID, truncate(reason, maxReason))
	return err
}

func (r *Repo) RecentSearches(ctx context.Context, clientID string, limit int) ([]domain.SearchRecord, error) {
	rows, err := r.db.QueryContext(ctx, recentSearchesSQL, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SearchRecord
	for rows.Next() {
		var (
			rec   domain.SearchRecord
			dest  sql.NullString
			cons  []byte
			durMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.ClientID, &dest, &cons, &rec.Fetched, &rec.Shown, &durMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if dest.Valid {
			d := dest.String
			rec.Destination = &d
		}
		if len(cons) > 0 {
			if err := json.Unmarshal(cons, &rec.Constraints); err != nil {
				return nil, fmt.Errorf("decode constraints of search %d: %w", rec.ID, err)
			}
		}
		rec.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
