package etimad

import "strings"

// Labels rendered in the first detail section (identity and commercial terms).
const (
	LabelTenderName        = "اسم المنافسة"
	LabelTenderNumber      = "رقم المنافسة"
	LabelReferenceNumber   = "الرقم المرجعي"
	LabelPurpose           = "الغرض من المنافسة"
	LabelDocumentValue     = "قيمة وثائق المنافسة"
	LabelStatus            = "حالة المنافسة"
	LabelContractDuration  = "مدة العقد"
	LabelInsuranceRequired = "هل التأمين من متطلبات المنافسة"
	LabelTenderType        = "نوع المنافسة"
	LabelGovernmentEntity  = "الجهة الحكوميه"
)

// Labels rendered in the second detail section (dates and logistics).
const (
	LabelInquiryDeadline    = "آخر موعد لإستلام الإستفسارات"
	LabelSubmissionDeadline = "آخر موعد لتقديم العروض"
	LabelOpeningDate        = "تاريخ فتح العروض"
	LabelEvaluationDate     = "تاريخ فحص العروض"
	LabelSuspensionPeriod   = "فترة التوقف"
	LabelExpectedAwardDate  = "التاريخ المتوقع للترسية"
	LabelWorkStartDate      = "تاريخ بدء الأعمال / الخدمات"
	LabelQuestionStart      = "بداية إرسال الأسئلة و الاستفسارات"
	LabelMaxResponseTime    = "اقصى مدة للاجابة على الاستفسارات"
	LabelOpeningLocation    = "مكان فتح العرض"
)

// Section1Labels is the expected label set for the first detail tab.
var Section1Labels = []string{
	LabelTenderName,
	LabelTenderNumber,
	LabelReferenceNumber,
	LabelPurpose,
	LabelDocumentValue,
	LabelStatus,
	LabelContractDuration,
	LabelInsuranceRequired,
	LabelTenderType,
	LabelGovernmentEntity,
}

// Section2Labels is the expected label set for the second detail tab.
var Section2Labels = []string{
	LabelInquiryDeadline,
	LabelSubmissionDeadline,
	LabelOpeningDate,
	LabelEvaluationDate,
	LabelSuspensionPeriod,
	LabelExpectedAwardDate,
	LabelWorkStartDate,
	LabelQuestionStart,
	LabelMaxResponseTime,
	LabelOpeningLocation,
}

// ExtractFields scans rendered tab text for known labels. The portal renders
// each field as a label line followed by a value line, so whenever a trimmed
// non-empty line exactly matches an expected label, the next non-empty line is
// taken as its value and the scan resumes after it. A value line is consumed
// and never re-examined as a label. A label on the last line has no value and
// produces no entry; labels absent from the text simply do not appear in the
// result.
func ExtractFields(raw string, labels []string) map[string]string {
	expected := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		expected[l] = struct{}{}
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	result := make(map[string]string)
	for i := 0; i < len(lines); i++ {
		if _, ok := expected[lines[i]]; !ok {
			continue
		}
		if i+1 >= len(lines) {
			break
		}
		result[lines[i]] = lines[i+1]
		i++
	}
	return result
}
