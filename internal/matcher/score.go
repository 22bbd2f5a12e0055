package matcher

import (
	"github.com/shopspring/decimal"

	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/internal/textmatch"
)

// MatchMethod records which evidence attached an invoice line to an order
// line. Description evidence always wins over monetary coincidence.
type MatchMethod string

const (
	MethodDescription     MatchMethod = "description"
	MethodTotalCost       MatchMethod = "total_cost"
	MethodUnitCostQty     MatchMethod = "unit_cost_qty"
	MethodTotalCostApprox MatchMethod = "total_cost_approx"
	MethodNone            MatchMethod = "none"
)

// ScoreSourcePair scores how likely a local and an external line describe the
// same item, in [0,1]. Matching line numbers contribute a fixed component and
// shift weight off the description; without them the description carries
// more. The description component is character similarity alone; word overlap
// is an invoice-pass signal only. Empty descriptions contribute nothing.
func ScoreSourcePair(local, remote *models.NormalizedLine, config *MatchingConfig) float64 {
	score := 0.0

	descWeight := config.DescriptionWeightAlone
	if local.HasLineNumber() && remote.HasLineNumber() &&
		local.LineNumberValue() == remote.LineNumberValue() {
		score += config.LineNumberScore
		descWeight = config.DescriptionWeightMatched
	}

	descLocal := local.ComparisonDescription()
	descRemote := remote.ComparisonDescription()
	if descLocal != "" && descRemote != "" {
		score += textmatch.SimilarityPercent(descLocal, descRemote) / 100 * descWeight
	}

	return score
}

// ScoreInvoiceMatch scores an invoice line against an order line, in [0,100],
// and reports the evidence used. Description similarity is tried first; only
// when it falls under the threshold do the monetary fallbacks apply, strongest
// first: exact total, then exact unit cost with matching quantity, then an
// approximate total.
func ScoreInvoiceMatch(line, invoice *models.NormalizedLine, config *MatchingConfig) (float64, MatchMethod) {
	descLine := line.ComparisonDescription()
	descInvoice := invoice.ComparisonDescription()

	if descLine != "" && descInvoice != "" {
		if score := descriptionScore(descLine, descInvoice); score >= config.InvoiceScoreThreshold {
			return score, MethodDescription
		}
	}

	// Monetary fallbacks need a positive reference amount; malformed money
	// normalizes to zero and zero must never look like evidence
	if line.TotalCost.IsPositive() &&
		withinTolerance(line.TotalCost, invoice.TotalCost, config.TotalCostTolerance) {
		return 80, MethodTotalCost
	}

	if line.UnitCost.IsPositive() &&
		withinTolerance(line.UnitCost, invoice.UnitCost, config.UnitCostTolerance) &&
		withinTolerance(line.Qty, invoice.Qty, config.QtyTolerance) {
		return 75, MethodUnitCostQty
	}

	if !line.TotalCost.IsZero() {
		band := line.TotalCost.Abs().Mul(config.ApproxTotalPercent)
		if line.TotalCost.Sub(invoice.TotalCost).Abs().LessThanOrEqual(band) {
			return 50, MethodTotalCostApprox
		}
	}

	return 0, MethodNone
}

// descriptionScore returns the better of the two text signals, in [0,100].
// Word overlap is driven from the first description's side.
func descriptionScore(a, b string) float64 {
	charScore := textmatch.SimilarityPercent(a, b)
	wordScore := textmatch.WordMatchScore(textmatch.SignificantWords(a), textmatch.SignificantWords(b))
	if wordScore > charScore {
		return wordScore
	}
	return charScore
}

// withinTolerance reports whether two amounts differ by strictly less than tol
func withinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tol)
}
