package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/iluma/rivalviews-cli/internal/config"
	"github.com/iluma/rivalviews-cli/internal/db"
	"github.com/iluma/rivalviews-cli/internal/ilascore"
	"github.com/iluma/rivalviews-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	sector           TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	address          TEXT NOT NULL DEFAULT '',
	website          TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	google_rating    DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count     INTEGER NOT NULL DEFAULT 0,
	domain_rating    INTEGER,
	organic_traffic  BIGINT,
	indexed_keywords INTEGER,
	total_keywords   INTEGER,
	backlinks        BIGINT,
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
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_businesses_sector ON businesses(sector);
CREATE INDEX IF NOT EXISTS idx_businesses_city ON businesses(city);
CREATE INDEX IF NOT EXISTS idx_businesses_status ON businesses(status);
CREATE INDEX IF NOT EXISTS idx_businesses_ila_score ON businesses(ila_score DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertBusinesses bulk-upserts records keyed by id. The sub-score columns
// are left untouched on conflict so a re-import does not wipe scoring work.
//
// An import into an empty table has no conflicts to resolve, so it goes
// through plain COPY instead of the temp-table upsert.
func (s *PostgresStore) UpsertBusinesses(ctx context.Context, businesses []model.BusinessRecord) (int64, error) {
	if len(businesses) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(businesses))
	for i := range businesses {
		rows = append(rows, businessRow(&businesses[i]))
	}

	empty, err := s.tableEmpty(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: check businesses table")
	}
	if empty {
		n, err := db.CopyFrom(ctx, s.pool, "businesses", businessColumns, rows)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: copy businesses")
		}
		zap.L().Info("store: copied businesses into empty table", zap.Int64("count", n))
		return n, nil
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "businesses",
		Columns:      businessColumns,
		ConflictKeys: []string{"id"},
		UpdateCols: []string{
			"name", "sector", "city", "address", "website", "phone", "email",
			"google_rating", "review_count",
			"domain_rating", "organic_traffic", "indexed_keywords", "total_keywords",
			"backlinks", "ref_domains", "serp_rank",
			"ila_score", "status", "potential", "updated_at",
		},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert businesses")
	}

	zap.L().Info("store: upserted businesses", zap.Int64("count", n))
	return n, nil
}

// tableEmpty reports whether the businesses table holds no rows.
func (s *PostgresStore) tableEmpty(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM businesses)").Scan(&exists); err != nil {
		return false, err
	}
	return !exists, nil
}

const selectBusiness = `
SELECT id, name, sector, city, address, website, phone, email,
       google_rating, review_count,
       domain_rating, organic_traffic, indexed_keywords, total_keywords,
       backlinks, ref_domains, serp_rank,
       ila_score, status, potential, created_at, updated_at
FROM businesses`

func (s *PostgresStore) GetBusiness(ctx context.Context, id string) (*model.BusinessRecord, error) {
	row := s.pool.QueryRow(ctx, selectBusiness+" WHERE id = $1", id)

	var b model.BusinessRecord
	if err := scanBusiness(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: business %s not found", id)
		}
		return nil, eris.Wrapf(err, "postgres: get business %s", id)
	}
	return &b, nil
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.BusinessRecord, error) {
	query := selectBusiness + " WHERE 1=1"
	var args []any
	argNum := 1

	if len(filter.Sectors) > 0 {
		query += fmt.Sprintf(" AND sector = ANY($%d)", argNum)
		args = append(args, filter.Sectors)
		argNum++
	}
	if len(filter.Cities) > 0 {
		query += fmt.Sprintf(" AND city = ANY($%d)", argNum)
		args = append(args, filter.Cities)
		argNum++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filter.Status))
		argNum++
	}
	if filter.MinILAScore > 0 {
		query += fmt.Sprintf(" AND ila_score >= $%d", argNum)
		args = append(args, filter.MinILAScore)
		argNum++
	}

	query += " ORDER BY ila_score DESC, name ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses")
	}
	defer rows.Close()

	var results []model.BusinessRecord
	for rows.Next() {
		var b model.BusinessRecord
		if err := scanBusiness(rows, &b); err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate businesses")
	}
	return results, nil
}

func (s *PostgresStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM businesses ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate ids")
	}
	return ids, nil
}

const selectScoreInputs = `
SELECT seo_score, content_score, presence_score, reputation_score, position_score,
       COALESCE(domain_rating, 0), COALESCE(organic_traffic, 0),
       COALESCE(total_keywords, 0), COALESCE(ref_domains, 0)
FROM businesses WHERE id = $1`

func (s *PostgresStore) GetScoreInputs(ctx context.Context, id string) (*ScoreInputs, error) {
	row := s.pool.QueryRow(ctx, selectScoreInputs, id)

	var in ScoreInputs
	err := row.Scan(
		&in.Sub.SEO, &in.Sub.Content, &in.Sub.Presence, &in.Sub.Reputation, &in.Sub.Position,
		&in.Bonus.DomainRating, &in.Bonus.OrganicTraffic,
		&in.Bonus.TotalKeywords, &in.Bonus.RefDomains,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: business %s not found", id)
		}
		return nil, eris.Wrapf(err, "postgres: score inputs for %s", id)
	}
	return &in, nil
}

// UpdateSubscores writes new sub-scores and the recomputed composite in one
// statement. Returns the new composite score.
func (s *PostgresStore) UpdateSubscores(ctx context.Context, id string, sub ilascore.Subscores) (int, error) {
	inputs, err := s.GetScoreInputs(ctx, id)
	if err != nil {
		return 0, err
	}

	score := ilascore.Compute(sub, &inputs.Bonus)

	tag, err := s.pool.Exec(ctx, `
		UPDATE businesses
		SET seo_score = $1, content_score = $2, presence_score = $3,
		    reputation_score = $4, position_score = $5,
		    ila_score = $6, updated_at = $7
		WHERE id = $8`,
		sub.SEO, sub.Content, sub.Presence, sub.Reputation, sub.Position,
		score, time.Now().UTC(), id,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: update subscores for %s", id)
	}
	if tag.RowsAffected() == 0 {
		return 0, eris.Errorf("postgres: business %s not found", id)
	}

	zap.L().Debug("store: subscores updated",
		zap.String("id", id),
		zap.Int("ila_score", score),
	)
	return score, nil
}

// RefreshScore recomputes the composite from the stored inputs, e.g. after
// authority metrics changed through an import.
func (s *PostgresStore) RefreshScore(ctx context.Context, id string) (int, error) {
	inputs, err := s.GetScoreInputs(ctx, id)
	if err != nil {
		return 0, err
	}

	score := ilascore.Compute(inputs.Sub, &inputs.Bonus)

	tag, err := s.pool.Exec(ctx, `
		UPDATE businesses SET ila_score = $1, updated_at = $2
		WHERE id = $3 AND ila_score <> $1`,
		score, time.Now().UTC(), id,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: refresh score for %s", id)
	}
	_ = tag // zero rows affected just means the score was already current

	return score, nil
}

// scanner abstracts pgx.Row and pgx.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row scanner, b *model.BusinessRecord) error {
	var status, potential string
	err := row.Scan(
		&b.ID, &b.Name, &b.Sector, &b.City, &b.Address, &b.Website, &b.Phone, &b.Email,
		&b.GoogleRating, &b.ReviewCount,
		&b.DomainRating, &b.OrganicTraffic, &b.IndexedKeywords, &b.TotalKeywords,
		&b.Backlinks, &b.RefDomains, &b.SerpRank,
		&b.ILAScore, &status, &potential, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	b.Status = model.BusinessStatus(status)
	b.Potential = model.Potential(potential)
	return nil
}
