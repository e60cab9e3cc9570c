package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Postgres is the pgx-backed persistence layer. It is constructed once at
// process start and passed explicitly to everything that needs it.
type Postgres struct {
	db     DB
	sb     squirrel.StatementBuilderType
	logger *zap.Logger
}

var tenderColumns = []string{
	"tender_number",
	"tender_name",
	"reference_number",
	"purpose",
	"document_value",
	"status",
	"contract_duration",
	"insurance_required",
	"tender_type",
	"government_entity",
	"inquiry_deadline",
	"submission_deadline",
	"opening_date",
	"evaluation_date",
	"suspension_period",
	"expected_award_date",
	"work_start_date",
	"question_start_date",
	"max_response_time",
	"opening_location",
	"link",
	"keyword_id",
	"raw",
}

// NewPostgres connects a pool using the provided config.
func NewPostgres(ctx context.Context, cfg Config, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresWithDB(pool, logger), nil
}

// NewPostgresWithDB constructs a store from an existing pool (primarily for
// testing).
func NewPostgresWithDB(db DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{
		db:     db,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	if p == nil || p.db == nil {
		return
	}
	p.db.Close()
}

// Ping reports whether the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// UpsertTender replaces the row for t.TenderNumber with t, inside one
// transaction: delete the old row (carrying its created_at forward if it
// existed) then insert the new one. Every mapped column reflects the new
// record; this is a full overwrite, not a merge.
func (p *Postgres) UpsertTender(ctx context.Context, t Tender) error {
	if t.TenderNumber == "" {
		return fmt.Errorf("tender number is required")
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	delSQL, delArgs, err := p.sb.
		Delete("tenders").
		Where(squirrel.Eq{"tender_number": t.TenderNumber}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	var createdAt *time.Time
	var prev time.Time
	switch scanErr := tx.QueryRow(ctx, delSQL, delArgs...).Scan(&prev); {
	case scanErr == nil:
		createdAt = &prev
	case errors.Is(scanErr, pgx.ErrNoRows):
		// first insert, created_at comes from the column default
	default:
		return fmt.Errorf("delete tender %s: %w", t.TenderNumber, scanErr)
	}

	cols := tenderColumns
	vals := []any{
		t.TenderNumber,
		t.TenderName,
		t.ReferenceNumber,
		t.Purpose,
		t.DocumentValue,
		t.Status,
		t.ContractDuration,
		t.InsuranceRequired,
		t.TenderType,
		t.GovernmentEntity,
		t.InquiryDeadline,
		t.SubmissionDeadline,
		t.OpeningDate,
		t.EvaluationDate,
		t.SuspensionPeriod,
		t.ExpectedAwardDate,
		t.WorkStartDate,
		t.QuestionStartDate,
		t.MaxResponseTime,
		t.OpeningLocation,
		t.Link,
		t.KeywordID,
		rawParam(t.Raw),
	}
	if createdAt != nil {
		cols = append(append([]string(nil), cols...), "created_at")
		vals = append(vals, *createdAt)
	}

	insSQL, insArgs, err := p.sb.Insert("tenders").Columns(cols...).Values(vals...).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.Exec(ctx, insSQL, insArgs...); err != nil {
		return fmt.Errorf("insert tender %s: %w", t.TenderNumber, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// LogScraping appends one audit row. Audit failures are logged and swallowed
// so they never mask the outcome of the scrape they describe.
func (p *Postgres) LogScraping(
	ctx context.Context,
	keywordID, classificationID *int64,
	count int,
	status, errMsg string,
) {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	sql, args, err := p.sb.
		Insert("scraping_logs").
		Columns("keyword_id", "classification_id", "tender_count", "status", "error_message").
		Values(keywordID, classificationID, count, status, msg).
		ToSql()
	if err != nil {
		p.logger.Warn("build scraping log insert failed", zap.Error(err))
		return
	}
	if _, err := p.db.Exec(ctx, sql, args...); err != nil {
		p.logger.Warn("scraping log insert failed", zap.String("status", status), zap.Error(err))
	}
}

// LookupKeyword finds the classification keyword matching term in either
// language. Returns ErrNotFound when no keyword matches.
func (p *Postgres) LookupKeyword(ctx context.Context, term string) (Keyword, error) {
	sql, args, err := p.sb.
		Select("id", "classification_id", "keyword_ar", "keyword_en").
		From("etimad_classification_keywords").
		Where(squirrel.Or{
			squirrel.Eq{"keyword_en": term},
			squirrel.Eq{"keyword_ar": term},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return Keyword{}, fmt.Errorf("build keyword lookup: %w", err)
	}

	var kw Keyword
	err = p.db.QueryRow(ctx, sql, args...).
		Scan(&kw.ID, &kw.ClassificationID, &kw.KeywordAr, &kw.KeywordEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return Keyword{}, ErrNotFound
	}
	if err != nil {
		return Keyword{}, fmt.Errorf("lookup keyword %q: %w", term, err)
	}
	return kw, nil
}

// RecentTenders returns the latest tenders ordered by update time.
func (p *Postgres) RecentTenders(ctx context.Context, limit int) ([]Tender, error) {
	cols := append(append([]string(nil), tenderColumns...), "created_at", "updated_at")
	sql, args, err := p.sb.
		Select(cols...).
		From("tenders").
		OrderBy("updated_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent tenders: %w", err)
	}

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent tenders: %w", err)
	}
	defer rows.Close()

	var tenders []Tender
	for rows.Next() {
		var t Tender
		if err := rows.Scan(
			&t.TenderNumber,
			&t.TenderName,
			&t.ReferenceNumber,
			&t.Purpose,
			&t.DocumentValue,
			&t.Status,
			&t.ContractDuration,
			&t.InsuranceRequired,
			&t.TenderType,
			&t.GovernmentEntity,
			&t.InquiryDeadline,
			&t.SubmissionDeadline,
			&t.OpeningDate,
			&t.EvaluationDate,
			&t.SuspensionPeriod,
			&t.ExpectedAwardDate,
			&t.WorkStartDate,
			&t.QuestionStartDate,
			&t.MaxResponseTime,
			&t.OpeningLocation,
			&t.Link,
			&t.KeywordID,
			&t.Raw,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tender row: %w", err)
		}
		tenders = append(tenders, t)
	}
	return tenders, rows.Err()
}

// RecentScrapingLogs returns the latest audit rows ordered by time.
func (p *Postgres) RecentScrapingLogs(ctx context.Context, limit int) ([]ScrapingLog, error) {
	sql, args, err := p.sb.
		Select("id", "keyword_id", "classification_id", "tender_count", "status", "error_message", "created_at").
		From("scraping_logs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent scraping logs: %w", err)
	}

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent scraping logs: %w", err)
	}
	defer rows.Close()

	var logs []ScrapingLog
	for rows.Next() {
		var l ScrapingLog
		if err := rows.Scan(
			&l.ID,
			&l.KeywordID,
			&l.ClassificationID,
			&l.TenderCount,
			&l.Status,
			&l.ErrorMessage,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan scraping log row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func rawParam(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
