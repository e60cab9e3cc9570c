package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// anyArgs returns n pgxmock.AnyArg() matchers for expectations that do not
// care about the individual argument values.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithDB(mock, zap.NewNop()), mock
}

func TestUpsertTenderFirstInsert(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM tenders WHERE tender_number = .+ RETURNING created_at").
		WithArgs("250939001").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO tenders").
		WithArgs(anyArgs(23)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.UpsertTender(context.Background(), Tender{
		TenderNumber:  "250939001",
		TenderName:    "منصة حوكمة البيانات",
		DocumentValue: decimal.RequireFromString("1500"),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTenderReplaceKeepsCreatedAt(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	created := time.Unix(1700000000, 0).UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM tenders WHERE tender_number = .+ RETURNING created_at").
		WithArgs("250939001").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
	// The replacement insert carries the previous created_at forward.
	mock.ExpectExec(`INSERT INTO tenders \(.+,created_at\)`).
		WithArgs(anyArgs(24)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.UpsertTender(context.Background(), Tender{
		TenderNumber: "250939001",
		TenderName:   "نسخة محدثة",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTenderRollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM tenders").
		WithArgs("250939001").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO tenders").
		WithArgs(anyArgs(23)...).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := store.UpsertTender(context.Background(), Tender{TenderNumber: "250939001"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "constraint violation")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertTenderRequiresNumber(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	err := store.UpsertTender(context.Background(), Tender{})
	require.Error(t, err)
}

func TestLogScrapingInsertsRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	kwID, classID := int64(3), int64(1)

	mock.ExpectExec("INSERT INTO scraping_logs").
		WithArgs(&kwID, &classID, 12, ScrapeStatusSuccess, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store.LogScraping(context.Background(), &kwID, &classID, 12, ScrapeStatusSuccess, "")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogScrapingSwallowsFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO scraping_logs").
		WithArgs(anyArgs(5)...).
		WillReturnError(errors.New("connection refused"))

	// Must not panic and must not propagate the error.
	store.LogScraping(context.Background(), nil, nil, 0, ScrapeStatusFailed, "portal unreachable")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupKeyword(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, classification_id, keyword_ar, keyword_en FROM etimad_classification_keywords").
		WithArgs("حوكمة البيانات", "حوكمة البيانات").
		WillReturnRows(pgxmock.NewRows([]string{"id", "classification_id", "keyword_ar", "keyword_en"}).
			AddRow(int64(3), int64(1), "حوكمة البيانات", "Data Governance"))

	kw, err := store.LookupKeyword(context.Background(), "حوكمة البيانات")
	require.NoError(t, err)
	require.Equal(t, int64(3), kw.ID)
	require.Equal(t, int64(1), kw.ClassificationID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupKeywordNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, classification_id, keyword_ar, keyword_en FROM etimad_classification_keywords").
		WithArgs("غير موجود", "غير موجود").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.LookupKeyword(context.Background(), "غير موجود")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecentScrapingLogs(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Now().UTC()
	msg := "no relevant tenders found"

	mock.ExpectQuery("SELECT .+ FROM scraping_logs ORDER BY created_at DESC LIMIT 50").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "keyword_id", "classification_id", "tender_count", "status", "error_message", "created_at",
		}).
			AddRow(int64(2), ptrInt64(3), ptrInt64(1), 0, ScrapeStatusSuccess, &msg, now).
			AddRow(int64(1), ptrInt64(3), ptrInt64(1), 14, ScrapeStatusSuccess, nil, now.Add(-time.Hour)))

	logs, err := store.RecentScrapingLogs(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, 0, logs[0].TenderCount)
	require.Equal(t, &msg, logs[0].ErrorMessage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func ptrInt64(v int64) *int64 { return &v }
