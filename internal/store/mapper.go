package store

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alialtamimi/etimad-scraper/internal/etimad"
)

// Portal markers for "free of charge" and "not applicable".
const (
	freeMarker = "مجانا"
	naMarker   = "لا يوجد"
)

// dateLayouts cover the portal's Gregorian date rendering: DD/MM/YYYY with an
// optional 12-hour or 24-hour time.
var dateLayouts = []string{
	"02/01/2006 3:04 PM",
	"02/01/2006 15:04",
	"02/01/2006",
}

var moneyPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// TenderFromRecord maps a raw detail record onto the normalized row. Labels
// outside the two expected sets are dropped. It fails only when one of the
// identity fields the row cannot exist without is missing; coercion failures
// on value and date fields degrade silently to zero / NULL.
func TenderFromRecord(rec etimad.TenderDetailRecord) (Tender, error) {
	number := strings.TrimSpace(rec.Field(etimad.LabelTenderNumber))
	name := strings.TrimSpace(rec.Field(etimad.LabelTenderName))
	entity := strings.TrimSpace(rec.Field(etimad.LabelGovernmentEntity))
	if number == "" || name == "" || entity == "" {
		return Tender{}, fmt.Errorf("record %s missing required fields (number=%q name=%q entity=%q)",
			rec.Link, number, name, entity)
	}

	return Tender{
		TenderNumber:       number,
		TenderName:         name,
		ReferenceNumber:    strings.TrimSpace(rec.Field(etimad.LabelReferenceNumber)),
		Purpose:            strings.TrimSpace(rec.Field(etimad.LabelPurpose)),
		DocumentValue:      ParseMoney(rec.Field(etimad.LabelDocumentValue)),
		Status:             strings.TrimSpace(rec.Field(etimad.LabelStatus)),
		ContractDuration:   strings.TrimSpace(rec.Field(etimad.LabelContractDuration)),
		InsuranceRequired:  strings.TrimSpace(rec.Field(etimad.LabelInsuranceRequired)),
		TenderType:         strings.TrimSpace(rec.Field(etimad.LabelTenderType)),
		GovernmentEntity:   entity,
		InquiryDeadline:    ParseDate(rec.Field(etimad.LabelInquiryDeadline)),
		SubmissionDeadline: ParseDate(rec.Field(etimad.LabelSubmissionDeadline)),
		OpeningDate:        ParseDate(rec.Field(etimad.LabelOpeningDate)),
		EvaluationDate:     ParseDate(rec.Field(etimad.LabelEvaluationDate)),
		SuspensionPeriod:   strings.TrimSpace(rec.Field(etimad.LabelSuspensionPeriod)),
		ExpectedAwardDate:  ParseDate(rec.Field(etimad.LabelExpectedAwardDate)),
		WorkStartDate:      ParseDate(rec.Field(etimad.LabelWorkStartDate)),
		QuestionStartDate:  ParseDate(rec.Field(etimad.LabelQuestionStart)),
		MaxResponseTime:    strings.TrimSpace(rec.Field(etimad.LabelMaxResponseTime)),
		OpeningLocation:    strings.TrimSpace(rec.Field(etimad.LabelOpeningLocation)),
		Link:               rec.Link,
		KeywordID:          rec.KeywordID,
		Raw:                rec.Raw,
	}, nil
}

// ParseMoney coerces a rendered document value to a decimal. The portal's
// free marker and anything unparseable both map to zero, never to an error:
// a tender row is worth keeping even when its price field is noise.
func ParseMoney(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Contains(s, freeMarker) {
		return decimal.Zero
	}
	match := moneyPattern.FindString(s)
	if match == "" {
		return decimal.Zero
	}
	match = strings.ReplaceAll(match, ",", "")
	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseDate coerces a rendered date value to a timestamp. The portal's N/A
// marker and anything unparseable both map to nil; parse failure is silent.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Contains(s, naMarker) {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
