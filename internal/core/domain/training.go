package domain

import "time"

// RuleWeights maps rule identifier to an additive confidence bonus learned
// from the correction log. Applied when the rule table is loaded.
type RuleWeights map[string]float64

// TrainingReport records one training run.
type TrainingReport struct {
	Version     string      `json:"version"`
	SampleCount int         `json:"sample_count"`
	Accuracy    float64     `json:"accuracy"`
	Weights     RuleWeights `json:"weights"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Stats are the dashboard aggregates, recomputed per query.
type Stats struct {
	TotalInvoices    int     `json:"total_invoices"`
	TotalCorrections int     `json:"total_corrections"`
	CorrectionsToday int     `json:"corrections_today"`
	FieldAccuracy    float64 `json:"field_accuracy"`
	AvgConfidence    float64 `json:"avg_confidence"`
	ModelVersion     string  `json:"model_version"`
}
