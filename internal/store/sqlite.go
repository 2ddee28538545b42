package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/iluma/rivalviews-cli/internal/ilascore"
	"github.com/iluma/rivalviews-cli/internal/model"
)

// SQLiteStore implements Store on a local sqlite file. It covers the same
// interface as PostgresStore so commands can switch drivers through config.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a sqlite database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: open %s", path)
	}

	// sqlite handles one writer at a time; keep the pool small.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}

	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	sector           TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	google_rating    REAL NOT NULL DEFAULT 0,
	review_count     INTEGER NOT NULL DEFAULT 0,
	domain_rating    INTEGER,
	organic_traffic  INTEGER,
	indexed_keywords INTEGER,
	total_keywords   INTEGER,
	backlinks        INTEGER,
	ref_domains      INTEGER,
	serp_rank        INTEGER,
	seo_score        INTEGER NOT NULL DEFAULT 0,
	content_score    INTEGER NOT NULL DEFAULT 0,
	presence_score   INTEGER NOT NULL DEFAULT 0,
	reputation_score INTEGER NOT NULL DEFAULT 0,
	position_score   INTEGER NOT NULL DEFAULT 0,
	ila_score        INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL DEFAULT 'prospect',
	potential        TEXT NOT NULL DEFAULT 'medium',
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_businesses_sector ON businesses(sector);
CREATE INDEX IF NOT EXISTS idx_businesses_city ON businesses(city);
CREATE INDEX IF NOT EXISTS idx_businesses_status ON businesses(status);
CREATE INDEX IF NOT EXISTS idx_businesses_ila_score ON businesses(ila_score DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteUpsertSQL inserts one row in businessColumns order, updating every
// non-key column except the sub-scores on conflict.
var sqliteUpsertSQL = fmt.Sprintf(`
INSERT INTO businesses (%s)
VALUES (%s)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name, sector = excluded.sector, city = excluded.city,
	address = excluded.address, website = excluded.website,
	phone = excluded.phone, email = excluded.email,
	google_rating = excluded.google_rating, review_count = excluded.review_count,
	domain_rating = excluded.domain_rating, organic_traffic = excluded.organic_traffic,
	indexed_keywords = excluded.indexed_keywords, total_keywords = excluded.total_keywords,
	backlinks = excluded.backlinks, ref_domains = excluded.ref_domains,
	serp_rank = excluded.serp_rank,
	ila_score = excluded.ila_score, status = excluded.status,
	potential = excluded.potential, updated_at = excluded.updated_at`,
	strings.Join(businessColumns, ", "),
	strings.TrimSuffix(strings.Repeat("?, ", len(businessColumns)), ", "),
)

func (s *SQLiteStore) UpsertBusinesses(ctx context.Context, businesses []model.BusinessRecord) (int64, error) {
	if len(businesses) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertSQL)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	var n int64
	for i := range businesses {
		if _, err := stmt.ExecContext(ctx, businessRow(&businesses[i])...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert business %s", businesses[i].ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}

	zap.L().Info("store: upserted businesses", zap.Int64("count", n))
	return n, nil
}

const sqliteSelectBusiness = `
SELECT id, name, sector, city, address, website, phone, email,
       google_rating, review_count,
       domain_rating, organic_traffic, indexed_keywords, total_keywords,
       backlinks, ref_domains, serp_rank,
       ila_score, status, potential, created_at, updated_at
FROM businesses`

func (s *SQLiteStore) GetBusiness(ctx context.Context, id string) (*model.BusinessRecord, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectBusiness+" WHERE id = ?", id)

	var b model.BusinessRecord
	if err := scanBusiness(row, &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: business %s not found", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get business %s", id)
	}
	return &b, nil
}

func (s *SQLiteStore) ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.BusinessRecord, error) {
	query := sqliteSelectBusiness + " WHERE 1=1"
	var args []any

	if len(filter.Sectors) > 0 {
		query += " AND sector IN (" + placeholders(len(filter.Sectors)) + ")"
		for _, sec := range filter.Sectors {
			args = append(args, sec)
		}
	}
	if len(filter.Cities) > 0 {
		query += " AND city IN (" + placeholders(len(filter.Cities)) + ")"
		for _, c := range filter.Cities {
			args = append(args, c)
		}
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.MinILAScore > 0 {
		query += " AND ila_score >= ?"
		args = append(args, filter.MinILAScore)
	}

	query += " ORDER BY ila_score DESC, name ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list businesses")
	}
	defer rows.Close()

	var results []model.BusinessRecord
	for rows.Next() {
		var b model.BusinessRecord
		if err := scanBusiness(rows, &b); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate businesses")
	}
	return results, nil
}

func (s *SQLiteStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM businesses ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate ids")
	}
	return ids, nil
}

const sqliteSelectScoreInputs = `
SELECT seo_score, content_score, presence_score, reputation_score, position_score,
       COALESCE(domain_rating, 0), COALESCE(organic_traffic, 0),
       COALESCE(total_keywords, 0), COALESCE(ref_domains, 0)
FROM businesses WHERE id = ?`

func (s *SQLiteStore) GetScoreInputs(ctx context.Context, id string) (*ScoreInputs, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectScoreInputs, id)

	var in ScoreInputs
	err := row.Scan(
		&in.Sub.SEO, &in.Sub.Content, &in.Sub.Presence, &in.Sub.Reputation, &in.Sub.Position,
		&in.Bonus.DomainRating, &in.Bonus.OrganicTraffic,
		&in.Bonus.TotalKeywords, &in.Bonus.RefDomains,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: business %s not found", id)
		}
		return nil, eris.Wrapf(err, "sqlite: score inputs for %s", id)
	}
	return &in, nil
}

func (s *SQLiteStore) UpdateSubscores(ctx context.Context, id string, sub ilascore.Subscores) (int, error) {
	inputs, err := s.GetScoreInputs(ctx, id)
	if err != nil {
		return 0, err
	}

	score := ilascore.Compute(sub, &inputs.Bonus)

	res, err := s.db.ExecContext(ctx, `
		UPDATE businesses
		SET seo_score = ?, content_score = ?, presence_score = ?,
		    reputation_score = ?, position_score = ?,
		    ila_score = ?, updated_at = ?
		WHERE id = ?`,
		sub.SEO, sub.Content, sub.Presence, sub.Reputation, sub.Position,
		score, time.Now().UTC(), id,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: update subscores for %s", id)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return 0, eris.Errorf("sqlite: business %s not found", id)
	}

	zap.L().Debug("store: subscores updated",
		zap.String("id", id),
		zap.Int("ila_score", score),
	)
	return score, nil
}

func (s *SQLiteStore) RefreshScore(ctx context.Context, id string) (int, error) {
	inputs, err := s.GetScoreInputs(ctx, id)
	if err != nil {
		return 0, err
	}

	score := ilascore.Compute(inputs.Sub, &inputs.Bonus)

	_, err = s.db.ExecContext(ctx, `
		UPDATE businesses SET ila_score = ?, updated_at = ?
		WHERE id = ? AND ila_score <> ?`,
		score, time.Now().UTC(), id, score,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: refresh score for %s", id)
	}
	return score, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
