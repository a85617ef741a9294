package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
)

const (
	// DefaultMinTrainingSamples gates training runs: below this many logged
	// corrections the signal is noise.
	DefaultMinTrainingSamples = 10

	// minSamplesPerRule keeps single-sighting rules out of the weight table.
	minSamplesPerRule = 3

	// weightScale maps per-rule accuracy onto a bonus: 100% accepted earns
	// +0.2, 0% earns -0.2, 50% leaves the rule untouched.
	weightScale = 0.4
)

// TrainingUseCase recomputes per-rule confidence bonuses from the correction
// log. Runs are on demand and replace the active weight table atomically.
type TrainingUseCase struct {
	repo       ports.InvoiceRepository
	minSamples int
}

func NewTrainingUseCase(repo ports.InvoiceRepository, minSamples int) *TrainingUseCase {
	if minSamples <= 0 {
		minSamples = DefaultMinTrainingSamples
	}
	return &TrainingUseCase{repo: repo, minSamples: minSamples}
}

func (uc *TrainingUseCase) Train(ctx context.Context) (*domain.TrainingReport, error) {
	log, err := uc.repo.ListAllCorrections(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch correction log: %w", err)
	}
	if len(log) < uc.minSamples {
		return nil, domain.WrapError(
			domain.ErrInsufficientData,
			"train",
			fmt.Errorf("%d corrections logged, %d required", len(log), uc.minSamples),
		)
	}

	weights, accuracy := ComputeRuleWeights(log)
	now := time.Now().UTC()
	report := &domain.TrainingReport{
		Version:     now.Format("20060102-150405"),
		SampleCount: len(log),
		Accuracy:    accuracy,
		Weights:     weights,
		CreatedAt:   now,
	}

	if err := uc.repo.SaveTrainingReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save training report: %w", err)
	}
	return report, nil
}

// ComputeRuleWeights derives per-rule bonuses from reviewer decisions. An
// accepted record counts for the rule that produced the value, a rejected one
// against it. Records with no source rule (reviewer filled a gap) contribute
// to overall accuracy only.
func ComputeRuleWeights(log []domain.CorrectionRecord) (domain.RuleWeights, float64) {
	type tally struct{ accepted, total int }
	perRule := make(map[string]*tally)
	acceptedTotal := 0

	for _, rec := range log {
		if rec.Accepted {
			acceptedTotal++
		}
		if rec.Rule == "" {
			continue
		}
		t, ok := perRule[rec.Rule]
		if !ok {
			t = &tally{}
			perRule[rec.Rule] = t
		}
		t.total++
		if rec.Accepted {
			t.accepted++
		}
	}

	weights := make(domain.RuleWeights, len(perRule))
	for rule, t := range perRule {
		if t.total < minSamplesPerRule {
			continue
		}
		accuracy := float64(t.accepted) / float64(t.total)
		weights[rule] = (accuracy - 0.5) * weightScale
	}

	accuracy := 0.0
	if len(log) > 0 {
		accuracy = float64(acceptedTotal) / float64(len(log))
	}
	return weights, accuracy
}
