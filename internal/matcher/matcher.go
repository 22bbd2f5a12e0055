// Package matcher pairs lines across sources: local requisition lines against
// external purchase-order lines, and order lines against posted invoice
// lines. Pair scores come from line numbers, description similarity, and
// monetary fallbacks; assignment is greedy in input order so that results are
// deterministic for a given input.
package matcher

import (
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/logger"
)

// SourceMatch pairs a local line with an external line by index into the
// input slices.
type SourceMatch struct {
	LocalIndex  int     `json:"local_index"`
	RemoteIndex int     `json:"remote_index"`
	Score       float64 `json:"score"`
}

// InvoiceMatch attaches an invoice line to an order line by index, recording
// the evidence that made the attachment.
type InvoiceMatch struct {
	LineIndex    int         `json:"line_index"`
	InvoiceIndex int         `json:"invoice_index"`
	Score        float64     `json:"score"`
	Method       MatchMethod `json:"method"`
}

// Matcher performs the pairwise scoring and greedy assignment
type Matcher struct {
	config *MatchingConfig
	logger logger.Logger
}

// NewMatcher creates a matcher with the given configuration. A nil config
// gets the defaults.
func NewMatcher(config *MatchingConfig, log logger.Logger) *Matcher {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Matcher{
		config: config,
		logger: log.WithComponent("matcher"),
	}
}

// Config returns the active configuration
func (m *Matcher) Config() *MatchingConfig {
	return m.config
}

// MatchSources pairs local lines with external lines. Each local line, in
// input order, takes the unclaimed external line with the strictly highest
// score at or above the threshold; equal scores keep the earlier external
// line. A claimed external line is never reassigned, so the result is
// injective on both sides. This greedy pass is an order-dependent
// approximation of the optimal assignment, kept deliberately because its
// determinism is what makes repeated runs comparable.
func (m *Matcher) MatchSources(local, remote []models.NormalizedLine) []SourceMatch {
	matches := make([]SourceMatch, 0, len(local))
	used := make(map[int]bool, len(remote))

	for i := range local {
		bestIndex := -1
		bestScore := 0.0

		for j := range remote {
			if used[j] {
				continue
			}
			score := ScoreSourcePair(&local[i], &remote[j], m.config)
			if score >= m.config.SourceScoreThreshold && score > bestScore {
				bestScore = score
				bestIndex = j
			}
		}

		if bestIndex < 0 {
			continue
		}

		used[bestIndex] = true
		matches = append(matches, SourceMatch{
			LocalIndex:  i,
			RemoteIndex: bestIndex,
			Score:       bestScore,
		})
		m.logger.WithFields(logger.Fields{
			"local_line":  local[i].String(),
			"remote_line": remote[bestIndex].String(),
			"score":       bestScore,
		}).Debug("Matched source pair")
	}

	return matches
}

// MatchInvoices attaches invoice lines to order lines using the same greedy
// discipline as MatchSources: input order, strictly best unclaimed invoice
// line at or above the threshold, first occurrence winning ties.
func (m *Matcher) MatchInvoices(lines, invoices []models.NormalizedLine) []InvoiceMatch {
	matches := make([]InvoiceMatch, 0, len(lines))
	used := make(map[int]bool, len(invoices))

	for i := range lines {
		bestIndex := -1
		bestScore := 0.0
		bestMethod := MethodNone

		for j := range invoices {
			if used[j] {
				continue
			}
			score, method := ScoreInvoiceMatch(&lines[i], &invoices[j], m.config)
			if score >= m.config.InvoiceScoreThreshold && score > bestScore {
				bestScore = score
				bestIndex = j
				bestMethod = method
			}
		}

		if bestIndex < 0 {
			continue
		}

		used[bestIndex] = true
		matches = append(matches, InvoiceMatch{
			LineIndex:    i,
			InvoiceIndex: bestIndex,
			Score:        bestScore,
			Method:       bestMethod,
		})
		m.logger.WithFields(logger.Fields{
			"order_line":   lines[i].String(),
			"invoice_line": invoices[bestIndex].String(),
			"score":        bestScore,
			"method":       string(bestMethod),
		}).Debug("Matched invoice line")
	}

	return matches
}

// UnmatchedLocal returns the indices of local lines left unpaired
func UnmatchedLocal(matches []SourceMatch, localCount int) []int {
	matched := make(map[int]bool, len(matches))
	for _, m := range matches {
		matched[m.LocalIndex] = true
	}
	unmatched := make([]int, 0, localCount-len(matches))
	for i := 0; i < localCount; i++ {
		if !matched[i] {
			unmatched = append(unmatched, i)
		}
	}
	return unmatched
}

// UnmatchedRemote returns the indices of external lines left unpaired
func UnmatchedRemote(matches []SourceMatch, remoteCount int) []int {
	matched := make(map[int]bool, len(matches))
	for _, m := range matches {
		matched[m.RemoteIndex] = true
	}
	unmatched := make([]int, 0, remoteCount-len(matches))
	for i := 0; i < remoteCount; i++ {
		if !matched[i] {
			unmatched = append(unmatched, i)
		}
	}
	return unmatched
}
