package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"po-reconciliation-service/internal/models"
)

func testLine(source models.LineSource, lineNumber int, desc string, qty, unit, total float64) models.NormalizedLine {
	line := models.NormalizedLine{
		Description: desc,
		Qty:         decimal.NewFromFloat(qty),
		UnitCost:    decimal.NewFromFloat(unit),
		TotalCost:   decimal.NewFromFloat(total),
		Source:      source,
	}
	if lineNumber != 0 {
		n := lineNumber
		line.LineNumber = &n
	}
	return line
}

func TestScoreSourcePairLineNumberAndDescription(t *testing.T) {
	config := DefaultMatchingConfig()

	local := testLine(models.SourceLocal, 1, "Steel Beam", 10, 5, 50)
	remote := testLine(models.SourceRemote, 1, "steel beam", 10, 5, 50)

	score := ScoreSourcePair(&local, &remote, config)
	if score != 1.0 {
		t.Errorf("Expected 1.0 for matching line number and identical description, got %f", score)
	}
}

func TestScoreSourcePairDescriptionOnly(t *testing.T) {
	config := DefaultMatchingConfig()

	local := testLine(models.SourceLocal, 1, "Steel Beam", 10, 5, 50)
	remote := testLine(models.SourceRemote, 2, "steel beam", 10, 5, 50)

	// Different line numbers: description alone carries the heavier weight
	score := ScoreSourcePair(&local, &remote, config)
	if score != 0.7 {
		t.Errorf("Expected 0.7 for identical description without line match, got %f", score)
	}
}

func TestScoreSourcePairAbsentLineNumbers(t *testing.T) {
	config := DefaultMatchingConfig()

	// Zero or missing line numbers never count as a match, even against
	// each other
	local := testLine(models.SourceLocal, 0, "Steel Beam", 10, 5, 50)
	remote := testLine(models.SourceRemote, 0, "steel beam", 10, 5, 50)

	score := ScoreSourcePair(&local, &remote, config)
	if score != 0.7 {
		t.Errorf("Expected absent line numbers to contribute nothing, got %f", score)
	}
}

func TestScoreSourcePairEmptyDescriptions(t *testing.T) {
	config := DefaultMatchingConfig()

	local := testLine(models.SourceLocal, 3, "", 10, 5, 50)
	remote := testLine(models.SourceRemote, 3, "", 10, 5, 50)

	score := ScoreSourcePair(&local, &remote, config)
	if score != 0.5 {
		t.Errorf("Expected only the line-number component, got %f", score)
	}
}

func TestScoreSourcePairUsesCodePrefix(t *testing.T) {
	config := DefaultMatchingConfig()

	// The external system received "A1-steel beam", so the code prefix on the
	// local side is what lines the descriptions up
	local := testLine(models.SourceLocal, 0, "steel beam", 10, 5, 50)
	local.Code = "A1"
	remote := testLine(models.SourceRemote, 0, "a1-steel beam", 10, 5, 50)

	score := ScoreSourcePair(&local, &remote, config)
	if score != 0.7 {
		t.Errorf("Expected code-prefixed descriptions to match exactly, got %f", score)
	}
}

func TestScoreInvoiceMatchDescription(t *testing.T) {
	config := DefaultMatchingConfig()

	line := testLine(models.SourceLocal, 1, "Steel Beam", 10, 5, 50)
	invoice := testLine(models.SourceInvoice, 0, "steel beam", 10, 5, 50)

	score, method := ScoreInvoiceMatch(&line, &invoice, config)
	if method != MethodDescription {
		t.Errorf("Expected description method, got %s", method)
	}
	if score != 100 {
		t.Errorf("Expected 100, got %f", score)
	}
}

func TestScoreInvoiceMatchTotalCostFallback(t *testing.T) {
	config := DefaultMatchingConfig()

	line := testLine(models.SourceLocal, 1, "abc", 10, 5, 50)
	invoice := testLine(models.SourceInvoice, 0, "xyz", 1, 50, 50)

	score, method := ScoreInvoiceMatch(&line, &invoice, config)
	if method != MethodTotalCost {
		t.Errorf("Expected total_cost method, got %s", method)
	}
	if score != 80 {
		t.Errorf("Expected 80, got %f", score)
	}
}

func TestScoreInvoiceMatchUnitCostQtyFallback(t *testing.T) {
	config := DefaultMatchingConfig()

	// Totals disagree past tolerance but unit cost and quantity line up
	line := testLine(models.SourceLocal, 1, "abc", 10, 5, 50)
	invoice := testLine(models.SourceInvoice, 0, "xyz", 10, 5, 49.50)

	score, method := ScoreInvoiceMatch(&line, &invoice, config)
	if method != MethodUnitCostQty {
		t.Errorf("Expected unit_cost_qty method, got %s", method)
	}
	if score != 75 {
		t.Errorf("Expected 75, got %f", score)
	}
}

func TestScoreInvoiceMatchApproxTotalFallback(t *testing.T) {
	config := DefaultMatchingConfig()

	// Within 5% of the order line total, nothing stronger available
	line := testLine(models.SourceLocal, 1, "abc", 10, 10, 100)
	invoice := testLine(models.SourceInvoice, 0, "xyz", 8, 13, 104)

	score, method := ScoreInvoiceMatch(&line, &invoice, config)
	if method != MethodTotalCostApprox {
		t.Errorf("Expected total_cost_approx method, got %s", method)
	}
	if score != 50 {
		t.Errorf("Expected 50, got %f", score)
	}
}

func TestScoreInvoiceMatchIgnoresZeroAmounts(t *testing.T) {
	config := DefaultMatchingConfig()

	// Malformed money normalizes to zero; a zero-cost line must not claim a
	// zero-valued invoice line on monetary coincidence
	line := testLine(models.SourceLocal, 1, "abc", 0, 0, 0)
	invoice := testLine(models.SourceInvoice, 0, "xyz", 0, 0, 0)

	score, method := ScoreInvoiceMatch(&line, &invoice, config)
	if method != MethodNone {
		t.Errorf("Expected no match on zero amounts, got %s", method)
	}
	if score != 0 {
		t.Errorf("Expected 0, got %f", score)
	}
}

func TestScoreInvoiceMatchToleranceIsStrict(t *testing.T) {
	config := DefaultMatchingConfig()

	// A delta of exactly one cent sits on the boundary and does not count as
	// an exact total match; the approximate band still covers it
	line := testLine(models.SourceLocal, 1, "abc", 10, 5, 50)
	invoice := testLine(models.SourceInvoice, 0, "xyz", 1, 50.01, 50.01)

	score, method := ScoreInvoiceMatch(&line, &invoice, config)
	if method != MethodTotalCostApprox {
		t.Errorf("Expected total_cost_approx method, got %s", method)
	}
	if score != 50 {
		t.Errorf("Expected 50, got %f", score)
	}
}

func TestScoreInvoiceMatchNone(t *testing.T) {
	config := DefaultMatchingConfig()

	line := testLine(models.SourceLocal, 1, "abc", 10, 10, 100)
	invoice := testLine(models.SourceInvoice, 0, "xyz", 3, 70, 210)

	score, method := ScoreInvoiceMatch(&line, &invoice, config)
	if method != MethodNone {
		t.Errorf("Expected no match, got %s", method)
	}
	if score != 0 {
		t.Errorf("Expected 0, got %f", score)
	}
}

func TestMatchSourcesPairsBestCandidate(t *testing.T) {
	m := NewMatcher(nil, nil)

	local := []models.NormalizedLine{
		testLine(models.SourceLocal, 1, "Steel Beam", 10, 5, 50),
		testLine(models.SourceLocal, 2, "Freight", 1, 20, 20),
	}
	remote := []models.NormalizedLine{
		testLine(models.SourceRemote, 2, "freight", 1, 20, 20),
		testLine(models.SourceRemote, 1, "steel beam", 10, 5, 50),
	}

	matches := m.MatchSources(local, remote)
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].RemoteIndex != 1 {
		t.Errorf("Expected first local line to take remote index 1, got %d", matches[0].RemoteIndex)
	}
	if matches[1].RemoteIndex != 0 {
		t.Errorf("Expected second local line to take remote index 0, got %d", matches[1].RemoteIndex)
	}
}

func TestMatchSourcesFirstWinsOnTies(t *testing.T) {
	m := NewMatcher(nil, nil)

	local := []models.NormalizedLine{
		testLine(models.SourceLocal, 0, "Steel Beam", 10, 5, 50),
	}
	// Two identical candidates: the earlier one must win
	remote := []models.NormalizedLine{
		testLine(models.SourceRemote, 0, "steel beam", 10, 5, 50),
		testLine(models.SourceRemote, 0, "steel beam", 10, 5, 50),
	}

	matches := m.MatchSources(local, remote)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].RemoteIndex != 0 {
		t.Errorf("Expected tie to keep the first candidate, got remote index %d", matches[0].RemoteIndex)
	}
}

func TestMatchSourcesInjective(t *testing.T) {
	m := NewMatcher(nil, nil)

	// Both locals describe the same item; only one can claim the single
	// remote line
	local := []models.NormalizedLine{
		testLine(models.SourceLocal, 0, "Steel Beam", 10, 5, 50),
		testLine(models.SourceLocal, 0, "Steel Beam", 10, 5, 50),
	}
	remote := []models.NormalizedLine{
		testLine(models.SourceRemote, 0, "steel beam", 10, 5, 50),
	}

	matches := m.MatchSources(local, remote)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].LocalIndex != 0 {
		t.Errorf("Expected the earlier local line to claim the remote, got local index %d", matches[0].LocalIndex)
	}

	if unmatched := UnmatchedLocal(matches, len(local)); len(unmatched) != 1 || unmatched[0] != 1 {
		t.Errorf("Expected local index 1 unmatched, got %v", unmatched)
	}
	if unmatched := UnmatchedRemote(matches, len(remote)); len(unmatched) != 0 {
		t.Errorf("Expected no unmatched remotes, got %v", unmatched)
	}
}

func TestMatchSourcesThreshold(t *testing.T) {
	m := NewMatcher(nil, nil)

	local := []models.NormalizedLine{
		testLine(models.SourceLocal, 0, "Steel Beam", 10, 5, 50),
	}
	remote := []models.NormalizedLine{
		testLine(models.SourceRemote, 0, "office chairs", 2, 80, 160),
	}

	matches := m.MatchSources(local, remote)
	if len(matches) != 0 {
		t.Errorf("Expected no match under threshold, got %d", len(matches))
	}
}

func TestMatchInvoicesPrefersDescription(t *testing.T) {
	m := NewMatcher(nil, nil)

	lines := []models.NormalizedLine{
		testLine(models.SourceLocal, 1, "Steel Beam", 10, 5, 50),
	}
	invoices := []models.NormalizedLine{
		// Monetary coincidence only
		testLine(models.SourceInvoice, 0, "xyz", 1, 50, 50),
		// Description evidence, weaker monetary fit
		testLine(models.SourceInvoice, 0, "steel beam", 5, 5, 25),
	}

	matches := m.MatchInvoices(lines, invoices)
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	if matches[0].InvoiceIndex != 1 || matches[0].Method != MethodDescription {
		t.Errorf("Expected description match on invoice index 1, got index %d method %s",
			matches[0].InvoiceIndex, matches[0].Method)
	}
}

func TestMatchInvoicesClaimsEachLineOnce(t *testing.T) {
	m := NewMatcher(nil, nil)

	lines := []models.NormalizedLine{
		testLine(models.SourceLocal, 1, "Steel Beam", 10, 5, 50),
		testLine(models.SourceLocal, 2, "Steel Beam", 10, 5, 50),
	}
	invoices := []models.NormalizedLine{
		testLine(models.SourceInvoice, 0, "steel beam", 10, 5, 50),
	}

	matches := m.MatchInvoices(lines, invoices)
	if len(matches) != 1 {
		t.Fatalf("Expected a single invoice attachment, got %d", len(matches))
	}
	if matches[0].LineIndex != 0 {
		t.Errorf("Expected the earlier order line to claim the invoice, got %d", matches[0].LineIndex)
	}
}

func TestMatchingConfigValidate(t *testing.T) {
	config := DefaultMatchingConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}

	bad := config.Clone()
	bad.SourceScoreThreshold = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("Expected out-of-range source threshold to fail validation")
	}

	bad = config.Clone()
	bad.InvoiceScoreThreshold = -1
	if err := bad.Validate(); err == nil {
		t.Error("Expected negative invoice threshold to fail validation")
	}

	bad = config.Clone()
	bad.TotalCostTolerance = decimal.NewFromFloat(-0.01)
	if err := bad.Validate(); err == nil {
		t.Error("Expected negative tolerance to fail validation")
	}
}
