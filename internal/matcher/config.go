package matcher

import (
	"github.com/shopspring/decimal"

	"po-reconciliation-service/pkg/errors"
)

// MatchingConfig holds the thresholds and weights of the pairwise scorers.
// The defaults are calibrated against live reconciliation data; change them
// together or not at all.
type MatchingConfig struct {
	// SourceScoreThreshold is the minimum pair score, in [0,1], for a local
	// line to be considered the same item as an external line.
	SourceScoreThreshold float64 `json:"source_score_threshold"`

	// InvoiceScoreThreshold is the minimum pair score, in [0,100], for an
	// invoice line to be attached to an order line. It doubles as the floor
	// under which description evidence is abandoned in favor of the monetary
	// fallbacks.
	InvoiceScoreThreshold float64 `json:"invoice_score_threshold"`

	// LineNumberScore is the contribution of an exact line-number match
	LineNumberScore float64 `json:"line_number_score"`

	// DescriptionWeightMatched scales the description score when line
	// numbers already matched; DescriptionWeightAlone applies when
	// description is the only evidence.
	DescriptionWeightMatched float64 `json:"description_weight_matched"`
	DescriptionWeightAlone   float64 `json:"description_weight_alone"`

	// Monetary tolerances for the invoice fallback checks
	TotalCostTolerance decimal.Decimal `json:"total_cost_tolerance"`
	UnitCostTolerance  decimal.Decimal `json:"unit_cost_tolerance"`
	QtyTolerance       decimal.Decimal `json:"qty_tolerance"`

	// ApproxTotalPercent is the relative band for the weakest fallback:
	// totals within this fraction of each other still hint at a match.
	ApproxTotalPercent decimal.Decimal `json:"approx_total_percent"`
}

// DefaultMatchingConfig returns the production configuration
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		SourceScoreThreshold:     0.6,
		InvoiceScoreThreshold:    30,
		LineNumberScore:          0.5,
		DescriptionWeightMatched: 0.5,
		DescriptionWeightAlone:   0.7,
		TotalCostTolerance:       decimal.NewFromFloat(0.01),
		UnitCostTolerance:        decimal.NewFromFloat(0.001),
		QtyTolerance:             decimal.NewFromFloat(0.01),
		ApproxTotalPercent:       decimal.NewFromFloat(0.05),
	}
}

// Validate checks the configuration for values that would make matching
// meaningless rather than merely different.
func (c *MatchingConfig) Validate() error {
	if c.SourceScoreThreshold < 0 || c.SourceScoreThreshold > 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"source_score_threshold", c.SourceScoreThreshold, nil)
	}
	if c.InvoiceScoreThreshold < 0 || c.InvoiceScoreThreshold > 100 {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"invoice_score_threshold", c.InvoiceScoreThreshold, nil)
	}
	if c.LineNumberScore < 0 || c.DescriptionWeightMatched < 0 || c.DescriptionWeightAlone < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"score_weights", "weights must not be negative", nil)
	}
	if c.TotalCostTolerance.IsNegative() || c.UnitCostTolerance.IsNegative() || c.QtyTolerance.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"tolerances", "tolerances must not be negative", nil)
	}
	if c.ApproxTotalPercent.IsNegative() || c.ApproxTotalPercent.GreaterThan(decimal.NewFromInt(1)) {
		return errors.ConfigurationError(errors.CodeInvalidConfig,
			"approx_total_percent", c.ApproxTotalPercent.String(), nil)
	}
	return nil
}

// Clone returns a copy safe to mutate independently
func (c *MatchingConfig) Clone() *MatchingConfig {
	clone := *c
	return &clone
}
