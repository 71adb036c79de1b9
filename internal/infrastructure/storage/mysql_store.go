// Package storage persists pipeline records in MySQL.
//
// Expected table:
//
//	CREATE TABLE news_analysis (
//	    id BIGINT AUTO_INCREMENT PRIMARY KEY,
//	    content TEXT NOT NULL,
//	    content_hash CHAR(64) AS (SHA2(content, 256)) STORED UNIQUE,
//	    extract_time DATETIME NOT NULL,
//	    event_time DATETIME NULL,
//	    analysis_stage TINYINT NOT NULL DEFAULT 1,
//	    attribute VARCHAR(16) NULL,
//	    category VARCHAR(64) NULL,
//	    bearish_industries JSON NULL,
//	    bullish_industries JSON NULL,
//	    related_stocks JSON NULL,
//	    related_cryptos JSON NULL,
//	    industry_impact_certainty VARCHAR(8) NULL,
//	    industry_impact_strength VARCHAR(8) NULL,
//	    updated_at DATETIME NULL
//	);
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"NewsflashAnalyzer/internal/config"
	"NewsflashAnalyzer/internal/domain"
	"NewsflashAnalyzer/internal/ports"
)

const newsTable = "news_analysis"

// mysqlDuplicateEntry is ER_DUP_ENTRY, raised by the unique content index.
const mysqlDuplicateEntry = 1062

// Closed outcome set for store operations. Callers match with errors.Is
// instead of comparing strings.
var (
	ErrUnavailable      = errors.New("news store unavailable")
	ErrDuplicateContent = errors.New("duplicate news content")
	ErrNotFound         = errors.New("news record not found")
	ErrInvalidAttribute = errors.New("invalid news attribute")
)

// MySQLStore records each news item's lifecycle stage and the fields each
// stage produces.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.NewsStore = (*MySQLStore)(nil)

// Open connects to MySQL from configuration.
func Open(cfg config.DatabaseConfig) (*MySQLStore, error) {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.ParseTime = true

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewMySQLStore(db), nil
}

// NewMySQLStore wires an existing sql.DB.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: time.Now}
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertNews records a freshly fetched flash at stage 1. A second insert
// with identical content returns ErrDuplicateContent and leaves the
// original row untouched.
func (s *MySQLStore) InsertNews(ctx context.Context, content string, extractTime time.Time) (int64, error) {
	if err := s.ensure(ctx); err != nil {
		return 0, err
	}

	query, args, err := sq.Insert(newsTable).
		Columns("extract_time", "content", "analysis_stage").
		Values(extractTime, content, int(domain.StageIngested)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyExecErr("insert news", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert news id: %w", err)
	}
	return id, nil
}

// AdvanceClassification moves a record to stage 2 with its attribute and
// category in one atomic update. An attribute outside {fact, opinion} is
// rejected before the database is contacted.
func (s *MySQLStore) AdvanceClassification(ctx context.Context, id int64, attr domain.Attribute, category string) error {
	if !attr.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAttribute, attr)
	}
	if err := s.ensure(ctx); err != nil {
		return err
	}

	query, args, err := sq.Update(newsTable).
		Set("attribute", string(attr)).
		Set("category", nullString(category)).
		Set("analysis_stage", int(domain.StageClassified)).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build classification update: %w", err)
	}

	return s.execAdvance(ctx, "advance classification", id, query, args)
}

// AdvanceImpact moves a record to stage 3 with the validated impact fields.
// List columns are stored as JSON text and never as NULL.
func (s *MySQLStore) AdvanceImpact(ctx context.Context, id int64, rec domain.ImpactRecord) error {
	if err := s.ensure(ctx); err != nil {
		return err
	}

	bearish, err := marshalList(rec.BearishIndustries)
	if err != nil {
		return fmt.Errorf("marshal bearish_industries: %w", err)
	}
	bullish, err := marshalList(rec.BullishIndustries)
	if err != nil {
		return fmt.Errorf("marshal bullish_industries: %w", err)
	}
	stocks, err := marshalList(rec.RelatedStocks)
	if err != nil {
		return fmt.Errorf("marshal related_stocks: %w", err)
	}
	cryptos, err := marshalList(rec.RelatedCryptos)
	if err != nil {
		return fmt.Errorf("marshal related_cryptos: %w", err)
	}

	query, args, err := sq.Update(newsTable).
		Set("event_time", nullTime(rec.EventTime)).
		Set("bearish_industries", bearish).
		Set("bullish_industries", bullish).
		Set("related_stocks", stocks).
		Set("related_cryptos", cryptos).
		Set("industry_impact_certainty", nullString(rec.Certainty)).
		Set("industry_impact_strength", nullString(rec.Strength)).
		Set("analysis_stage", int(domain.StageAnalyzed)).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build impact update: %w", err)
	}

	return s.execAdvance(ctx, "advance impact", id, query, args)
}

// PendingNews lists records that have not passed the given stage, oldest
// first, for re-processing after a partial batch.
func (s *MySQLStore) PendingNews(ctx context.Context, maxStage domain.AnalysisStage) ([]domain.NewsItem, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}

	query, args, err := sq.Select(
		"id", "content", "extract_time", "event_time", "analysis_stage",
		"attribute", "category",
		"bearish_industries", "bullish_industries", "related_stocks", "related_cryptos",
		"industry_impact_certainty", "industry_impact_strength", "updated_at",
	).
		From(newsTable).
		Where(sq.LtOrEq{"analysis_stage": int(maxStage)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyExecErr("query pending", err)
	}
	defer rows.Close()

	var items []domain.NewsItem
	for rows.Next() {
		item, err := scanNewsItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending rows: %w", err)
	}

	return items, nil
}

func scanNewsItem(rows *sql.Rows) (domain.NewsItem, error) {
	var (
		item      domain.NewsItem
		eventTime sql.NullTime
		attribute sql.NullString
		category  sql.NullString
		bearish   sql.NullString
		bullish   sql.NullString
		stocks    sql.NullString
		cryptos   sql.NullString
		certainty sql.NullString
		strength  sql.NullString
		updatedAt sql.NullTime
	)

	err := rows.Scan(
		&item.ID, &item.Content, &item.ExtractTime, &eventTime, &item.Stage,
		&attribute, &category,
		&bearish, &bullish, &stocks, &cryptos,
		&certainty, &strength, &updatedAt,
	)
	if err != nil {
		return domain.NewsItem{}, fmt.Errorf("scan news item: %w", err)
	}

	if eventTime.Valid {
		item.EventTime = &eventTime.Time
	}
	item.Attribute = domain.Attribute(attribute.String)
	item.Category = category.String
	item.Impact.Certainty = certainty.String
	item.Impact.Strength = strength.String
	if updatedAt.Valid {
		item.UpdatedAt = updatedAt.Time
	}

	item.Impact.BearishIndustries = unmarshalStringList(bearish)
	item.Impact.BullishIndustries = unmarshalStringList(bullish)
	item.Impact.RelatedCryptos = unmarshalStringList(cryptos)
	item.Impact.RelatedStocks = unmarshalStockList(stocks)
	item.Impact.EventTime = item.EventTime

	return item, nil
}

func (s *MySQLStore) execAdvance(ctx context.Context, op string, id int64, query string, args []any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyExecErr(op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// ensure pings the pool so a stale connection is re-established before the
// operation; the operation itself is still attempted only once.
func (s *MySQLStore) ensure(ctx context.Context) error {
	if s.db == nil {
		return ErrUnavailable
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func classifyExecErr(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return ErrDuplicateContent
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// marshalList renders a list column as JSON text, coercing nil to [].
func marshalList(v any) (string, error) {
	switch list := v.(type) {
	case []string:
		if list == nil {
			v = []string{}
		}
	case []domain.StockRef:
		if list == nil {
			v = []domain.StockRef{}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalStringList(col sql.NullString) []string {
	out := []string{}
	if col.Valid && col.String != "" {
		_ = json.Unmarshal([]byte(col.String), &out)
	}
	return out
}

func unmarshalStockList(col sql.NullString) []domain.StockRef {
	out := []domain.StockRef{}
	if col.Valid && col.String != "" {
		_ = json.Unmarshal([]byte(col.String), &out)
	}
	return out
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
