package domain

type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "valid"
	ValidationWarning ValidationStatus = "warning"
	ValidationError   ValidationStatus = "error"
)

// worse orders statuses so reports can be folded.
func (s ValidationStatus) worse(other ValidationStatus) ValidationStatus {
	rank := map[ValidationStatus]int{ValidationValid: 0, ValidationWarning: 1, ValidationError: 2}
	if rank[other] > rank[s] {
		return other
	}
	return s
}

type FieldIssue struct {
	Kind   FieldKind        `json:"kind"`
	Status ValidationStatus `json:"status"`
	Reason string           `json:"reason"`
}

// ValidationReport holds one entry per checked field plus the folded
// invoice-level status.
type ValidationReport struct {
	Status      ValidationStatus `json:"status"`
	FieldIssues []FieldIssue     `json:"field_issues"`
}

func NewValidationReport(issues []FieldIssue) ValidationReport {
	status := ValidationValid
	for _, issue := range issues {
		status = status.worse(issue.Status)
	}
	if issues == nil {
		issues = []FieldIssue{}
	}
	return ValidationReport{Status: status, FieldIssues: issues}
}
