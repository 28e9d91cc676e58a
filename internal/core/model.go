package core

import (
	"strings"
	"time"
)

// CatalogItem is a reference product the listing is compared against
type CatalogItem struct {
	ID          string
	Brand       string
	Description string
	Price       int
}

// Listing is a candidate product listing submitted by the analyst
type Listing struct {
	Name  string
	Price int
}

// Validate checks the listing can be analysed
func (l Listing) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return &ListingError{Field: "name", Reason: "must not be empty"}
	}
	if l.Price <= 0 {
		return &ListingError{Field: "price", Reason: "must be a positive integer"}
	}
	return nil
}

// AnalysisRequest pairs a listing with the catalog snapshot it is checked against
type AnalysisRequest struct {
	Listing Listing
	Catalog []CatalogItem
}

// RiskLevel is the tier derived from the similarity score
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Action is what the analyst is advised to do with the listing
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReview  Action = "REVIEW"
	ActionReject  Action = "REJECT"
)

// AnalysisResult is the validated outcome of one analysis
type AnalysisResult struct {
	SimilarityScore   int       `json:"similarity_score"`
	RiskLevel         RiskLevel `json:"risk_level"`
	MatchingItemID    string    `json:"matching_item_id,omitempty"`
	Reasoning         string    `json:"reasoning"`
	RecommendedAction Action    `json:"recommended_action"`

	// ModelRiskLabel is the label the model reported for itself. It is shown
	// next to RiskLevel and never used for classification.
	ModelRiskLabel string   `json:"model_risk_label,omitempty"`
	Degraded       bool     `json:"degraded"`
	Warnings       []string `json:"warnings,omitempty"`

	AnalyzedAt   time.Time `json:"analyzed_at"`
	ModelUsed    string    `json:"model_used,omitempty"`
	ProcessingID string    `json:"processing_id,omitempty"`
	FromCache    bool      `json:"-"`
}

// HasMatch reports whether the model named a matching catalog item
func (r *AnalysisResult) HasMatch() bool {
	return r.MatchingItemID != ""
}

// Report is the human-readable rendering of an analysis
type Report struct {
	Summary      string
	Notification *Notification
}

// Notification is the outbound alert payload for high-similarity listings
type Notification struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Analysis bundles everything produced by a single analyze action
type Analysis struct {
	Listing Listing
	Result  *AnalysisResult
	Report  *Report
	// NotificationQueued is true when the notification sender was invoked
	NotificationQueued bool
}

// CacheEntry is a memoized analysis result
type CacheEntry struct {
	Key       string
	Result    *AnalysisResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at t
func (e *CacheEntry) Expired(t time.Time) bool {
	return !t.Before(e.ExpiresAt)
}
