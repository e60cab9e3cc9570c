// Package store owns the durable output of the pipeline: the normalized
// tenders table, the append-only scraping audit log, and the classification
// taxonomy the scrape targets are selected from.
package store

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Scraping audit statuses.
const (
	ScrapeStatusSuccess = "success"
	ScrapeStatusFailed  = "failed"
)

// Tender is one normalized row in the tenders table, keyed by TenderNumber.
// Re-ingesting the same number replaces every mapped column.
type Tender struct {
	TenderNumber       string          `json:"tender_number"`
	TenderName         string          `json:"tender_name"`
	ReferenceNumber    string          `json:"reference_number"`
	Purpose            string          `json:"purpose"`
	DocumentValue      decimal.Decimal `json:"document_value"`
	Status             string          `json:"status"`
	ContractDuration   string          `json:"contract_duration"`
	InsuranceRequired  string          `json:"insurance_required"`
	TenderType         string          `json:"tender_type"`
	GovernmentEntity   string          `json:"government_entity"`
	InquiryDeadline    *time.Time      `json:"inquiry_deadline"`
	SubmissionDeadline *time.Time      `json:"submission_deadline"`
	OpeningDate        *time.Time      `json:"opening_date"`
	EvaluationDate     *time.Time      `json:"evaluation_date"`
	SuspensionPeriod   string          `json:"suspension_period"`
	ExpectedAwardDate  *time.Time      `json:"expected_award_date"`
	WorkStartDate      *time.Time      `json:"work_start_date"`
	QuestionStartDate  *time.Time      `json:"question_start_date"`
	MaxResponseTime    string          `json:"max_response_time"`
	OpeningLocation    string          `json:"opening_location"`
	Link               string          `json:"link"`
	KeywordID          *int64          `json:"keyword_id"`
	Raw                []byte          `json:"-"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ScrapingLog is one append-only audit row recorded per discovery attempt.
type ScrapingLog struct {
	ID               int64     `json:"id"`
	KeywordID        *int64    `json:"keyword_id"`
	ClassificationID *int64    `json:"classification_id"`
	TenderCount      int       `json:"tender_count"`
	Status           string    `json:"status"`
	ErrorMessage     *string   `json:"error_message"`
	CreatedAt        time.Time `json:"created_at"`
}

// Classification groups related search keywords. Static reference data,
// never mutated by the pipeline.
type Classification struct {
	ID     int64  `json:"id"`
	NameAr string `json:"name_ar"`
	NameEn string `json:"name_en"`
}

// Keyword is one classification leaf used as a portal search term.
type Keyword struct {
	ID               int64  `json:"id"`
	ClassificationID int64  `json:"classification_id"`
	KeywordAr        string `json:"keyword_ar"`
	KeywordEn        string `json:"keyword_en"`
}
