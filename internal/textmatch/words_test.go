package textmatch

import (
	"reflect"
	"testing"
)

func TestSignificantWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Steel Beam", []string{"steel", "beam"}},
		{"trim-tex corner bead", []string{"trim", "tex", "corner", "bead"}},
		{"timber 90x45 (treated)", []string{"timber", "90x45", "treated"}},
		// short tokens and pure numbers drop out
		{"m8 bolt x 100", []string{"bolt"}},
		// punctuation is stripped inside tokens, duplicates collapse
		{"beam, beam & beam!", []string{"beam"}},
		{"supply/install flooring", []string{"supply", "install", "flooring"}},
		{"", nil},
		{"a b 12 34", nil},
	}

	for _, tt := range tests {
		got := SignificantWords(tt.input)
		if len(got) == 0 && len(tt.expected) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("SignificantWords(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestWordMatchScoreExact(t *testing.T) {
	a := []string{"steel", "beam"}
	b := []string{"beam", "steel"}
	if got := WordMatchScore(a, b); got != 100 {
		t.Errorf("Expected 100 for same word sets, got %f", got)
	}
}

func TestWordMatchScoreContainment(t *testing.T) {
	// "trimtex" on one side, "trim" and "tex" on the other: both directions
	// of containment must count
	a := []string{"trimtex", "bead"}
	b := []string{"trim", "tex", "bead"}
	if got := WordMatchScore(a, b); got != 100 {
		t.Errorf("Expected 100 via containment, got %f", got)
	}
}

func TestWordMatchScoreFuzzy(t *testing.T) {
	// "flooring" vs "floorings": distance 1, maxLen 9, 1/9 < 0.3
	a := []string{"flooring"}
	b := []string{"floorings"}
	if got := WordMatchScore(a, b); got != 100 {
		t.Errorf("Expected fuzzy match, got %f", got)
	}

	// Length 4 is the fuzzy floor: "bolt" vs "bold" is distance 1, 1/4 < 0.3
	if got := WordMatchScore([]string{"bolt"}, []string{"bold"}); got != 100 {
		t.Errorf("Expected fuzzy match for length-4 words, got %f", got)
	}

	// Three-letter words are below the fuzzy floor
	if got := WordMatchScore([]string{"rod"}, []string{"rid"}); got != 0 {
		t.Errorf("Expected no fuzzy match below length floor, got %f", got)
	}

	// Distance over the cap never matches
	if got := WordMatchScore([]string{"plasterboard"}, []string{"particleboard"}); got != 0 {
		t.Errorf("Expected no match past distance cap, got %f", got)
	}
}

func TestWordMatchScoreAsymmetry(t *testing.T) {
	a := []string{"steel"}
	b := []string{"steel", "beam"}

	if got := WordMatchScore(a, b); got != 100 {
		t.Errorf("Expected 100 driving from the smaller side, got %f", got)
	}
	if got := WordMatchScore(b, a); got != 50 {
		t.Errorf("Expected 50 driving from the larger side, got %f", got)
	}
}

func TestWordMatchScoreEmpty(t *testing.T) {
	if got := WordMatchScore(nil, []string{"beam"}); got != 0 {
		t.Errorf("Expected 0 for empty driving side, got %f", got)
	}
	if got := WordMatchScore([]string{"beam"}, nil); got != 0 {
		t.Errorf("Expected 0 for empty target side, got %f", got)
	}
}
