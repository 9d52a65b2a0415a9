package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/internal/models"
)

type PostgresConfig struct {
	ConnString string
}

// Postgres talks to the article tables directly.
type Postgres struct {
	config PostgresConfig
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"title", "body", "source", "timestamp", "score",
	"tags", "tickers", "sub_sector", "sector", "dimension",
}

func NewPostgres(ctx context.Context, config PostgresConfig, logger zerolog.Logger) (*Postgres, error) {
	if config.ConnString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &Postgres{
		config: config,
		pool:   pool,
		logger: logger,
	}, nil
}

func (p *Postgres) ExistingSources(ctx context.Context, table string) ([]string, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("source").From(table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	sources, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan sources: %w", err)
	}
	return sources, nil
}

// Insert writes all articles in one transaction.
func (p *Postgres) Insert(ctx context.Context, table string, articles []models.EnrichedArticle) error {
	if len(articles) == 0 {
		return nil
	}
	query, args, err := insertQuery(table, articles)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert articles: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertQuery(table string, articles []models.EnrichedArticle) (string, []interface{}, error) {
	if err := checkTable(table); err != nil {
		return "", nil, err
	}

	insert := psql.Insert(table).Columns(articleColumns...)
	for _, a := range articles {
		var dimension []byte
		if a.Dimension != nil {
			encoded, err := json.Marshal(a.Dimension)
			if err != nil {
				return "", nil, fmt.Errorf("failed to encode dimension: %w", err)
			}
			dimension = encoded
		}
		insert = insert.Values(
			sanitizeUTF8(a.Title),
			sanitizeUTF8(a.Body),
			a.Source,
			a.Timestamp,
			a.Score,
			a.Tags,
			a.Tickers,
			a.SubSector,
			a.Sector,
			dimension,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build insert: %w", err)
	}
	return query, args, nil
}

func (p *Postgres) FetchOlderThan(ctx context.Context, table string, cutoff time.Time) ([]map[string]interface{}, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("*").From(table).Where(sq.LtOrEq{"created_at": cutoff}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outdated rows: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("failed to scan outdated rows: %w", err)
	}
	return records, nil
}

func (p *Postgres) DeleteOlderThan(ctx context.Context, table string, cutoff time.Time) error {
	if err := checkTable(table); err != nil {
		return err
	}
	query, args, err := psql.Delete(table).Where(sq.LtOrEq{"created_at": cutoff}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete outdated rows: %w", err)
	}
	p.logger.Info().Str("table", table).Int64("deleted", tag.RowsAffected()).Msg("deleted outdated rows")
	return nil
}

func companiesQuery(market string) (string, []interface{}, error) {
	var builder sq.SelectBuilder
	switch market {
	case "idx":
		builder = psql.Select("p.symbol", "p.company_name", "COALESCE(m.sub_sector, '')").
			From("idx_company_profile p").
			LeftJoin("idx_subsector_metadata m ON m.sub_sector_id = p.sub_sector_id")
	case "sgx":
		builder = psql.Select("symbol", "name", "COALESCE(sub_sector, '')").From("sgx_company_report")
	default:
		return "", nil, fmt.Errorf("unknown market %q", market)
	}
	return builder.ToSql()
}

func (p *Postgres) CompanyProfiles(ctx context.Context, market string) ([]models.Company, error) {
	query, args, err := companiesQuery(market)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.Symbol, &c.Name, &c.SubSector); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read companies: %w", err)
	}
	return companies, nil
}

func (p *Postgres) SubsectorDescriptions(ctx context.Context) (map[string]string, error) {
	query, args, err := psql.Select("slug", "description").From("idx_subsector_metadata").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-sectors: %w", err)
	}
	defer rows.Close()

	descriptions := make(map[string]string)
	for rows.Next() {
		var slug, description string
		if err := rows.Scan(&slug, &description); err != nil {
			return nil, fmt.Errorf("failed to scan sub-sector: %w", err)
		}
		descriptions[slug] = description
	}
	return descriptions, rows.Err()
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
