package etimad

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractFieldsPairsLabelsWithNextLine(t *testing.T) {
	t.Parallel()

	raw := "\n" + LabelTenderName + "\nتطوير منصة البيانات\n" +
		LabelTenderNumber + "\n250939001\n" +
		"حقل غير معروف\nقيمة مهملة\n" +
		LabelGovernmentEntity + "\nوزارة المالية\n"

	got := ExtractFields(raw, Section1Labels)

	require.Equal(t, "تطوير منصة البيانات", got[LabelTenderName])
	require.Equal(t, "250939001", got[LabelTenderNumber])
	require.Equal(t, "وزارة المالية", got[LabelGovernmentEntity])
	require.NotContains(t, got, "حقل غير معروف")
	require.Len(t, got, 3)
}

func TestExtractFieldsSkipsTrailingLabel(t *testing.T) {
	t.Parallel()

	raw := LabelTenderName + "\nمنافسة تجريبية\n" + LabelStatus
	got := ExtractFields(raw, Section1Labels)

	require.Equal(t, "منافسة تجريبية", got[LabelTenderName])
	require.NotContains(t, got, LabelStatus)
}

func TestExtractFieldsDoesNotMatchConsumedValues(t *testing.T) {
	t.Parallel()

	// The value of the first field is itself a known label; it must be
	// consumed as a value, not re-matched.
	raw := LabelTenderName + "\n" + LabelStatus + "\n" + LabelTenderNumber + "\n42\n"
	got := ExtractFields(raw, Section1Labels)

	require.Equal(t, LabelStatus, got[LabelTenderName])
	require.Equal(t, "42", got[LabelTenderNumber])
	require.NotContains(t, got, LabelStatus)
}

func TestExtractFieldsMissingLabelsProduceNoEntry(t *testing.T) {
	t.Parallel()

	got := ExtractFields("نص حر بدون حقول\nسطر آخر", Section1Labels)
	require.Empty(t, got)
}

func TestExtractFieldsIdempotentOnReconstructedText(t *testing.T) {
	t.Parallel()

	raw := LabelTenderName + "\nمنافسة\n" + LabelTenderNumber + "\n77\n" +
		LabelPurpose + "\nتحليل البيانات\n"
	first := ExtractFields(raw, Section1Labels)

	var rebuilt strings.Builder
	for _, label := range Section1Labels {
		if v, ok := first[label]; ok {
			rebuilt.WriteString(label + "\n" + v + "\n")
		}
	}
	second := ExtractFields(rebuilt.String(), Section1Labels)
	require.Equal(t, first, second)
}

func TestExtractFieldsIgnoresBlankAndPaddedLines(t *testing.T) {
	t.Parallel()

	raw := "  " + LabelOpeningLocation + "  \n\n\n   الرياض   \n"
	got := ExtractFields(raw, Section2Labels)
	require.Equal(t, "الرياض", got[LabelOpeningLocation])
}
