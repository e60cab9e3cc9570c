package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alialtamimi/etimad-scraper/internal/etimad"
)

func TestParseMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"free marker", "مجانا", "0"},
		{"plain number", "500", "500"},
		{"thousands and currency", "1,234.50 ريال", "1234.5"},
		{"currency suffix", "1,234.50 SAR", "1234.5"},
		{"unparseable", "غير محدد", "0"},
		{"empty", "", "0"},
		{"whitespace", "   ", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			require.True(t, ParseMoney(tt.in).Equal(want),
				"ParseMoney(%q) = %s, want %s", tt.in, ParseMoney(tt.in), want)
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want *time.Time
	}{
		{"na marker", "لا يوجد", nil},
		{"date with am time", "01/02/2024 10:30 AM", ptrTime(2024, 2, 1, 10, 30)},
		{"date with pm time", "15/06/2024 2:05 PM", ptrTime(2024, 6, 15, 14, 5)},
		{"date with 24h time", "01/02/2024 16:45", ptrTime(2024, 2, 1, 16, 45)},
		{"date only", "01/02/2024", ptrTime(2024, 2, 1, 0, 0)},
		{"malformed", "يوم الاثنين القادم", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseDate(tt.in)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.True(t, got.Equal(*tt.want), "ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
		})
	}
}

func ptrTime(year int, month time.Month, day, hour, minute int) *time.Time {
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	return &t
}

func TestTenderFromRecord(t *testing.T) {
	t.Parallel()

	kwID := int64(7)
	rec := etimad.TenderDetailRecord{
		Link:      "https://tenders.etimad.sa/Tender/Details/1001",
		KeywordID: &kwID,
		Fields: map[string]string{
			etimad.LabelTenderName:         "منصة حوكمة البيانات",
			etimad.LabelTenderNumber:       "250939001",
			etimad.LabelGovernmentEntity:   "وزارة المالية",
			etimad.LabelDocumentValue:      "1,500.00 ريال",
			etimad.LabelStatus:             "نشط",
			etimad.LabelSubmissionDeadline: "01/02/2024 10:30 AM",
			etimad.LabelSuspensionPeriod:   "لا يوجد",
			"حقل غير معروف":                "يتم تجاهله",
		},
	}
	require.NoError(t, rec.Serialize())

	tender, err := TenderFromRecord(rec)
	require.NoError(t, err)

	require.Equal(t, "250939001", tender.TenderNumber)
	require.Equal(t, "منصة حوكمة البيانات", tender.TenderName)
	require.Equal(t, "وزارة المالية", tender.GovernmentEntity)
	require.True(t, tender.DocumentValue.Equal(decimal.RequireFromString("1500")))
	require.NotNil(t, tender.SubmissionDeadline)
	require.Nil(t, tender.InquiryDeadline)
	require.Equal(t, "لا يوجد", tender.SuspensionPeriod)
	require.Empty(t, tender.MaxResponseTime)
	require.Equal(t, rec.Link, tender.Link)
	require.Equal(t, &kwID, tender.KeywordID)
	require.NotEmpty(t, tender.Raw)
}

func TestTenderFromRecordRequiresIdentityFields(t *testing.T) {
	t.Parallel()

	rec := etimad.TenderDetailRecord{
		Link: "https://tenders.etimad.sa/Tender/Details/1002",
		Fields: map[string]string{
			etimad.LabelTenderName: "منافسة بدون رقم",
		},
	}
	_, err := TenderFromRecord(rec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required fields")
}
