package ranking

import (
	"testing"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/index"
)

func testIndex() *index.Index {
	return index.Build(&entities.Catalog{Products: []entities.Product{
		{
			ATCCode: "N02AA05", Name: "Oxycodone Xiromed", Form: entities.FormDepottablett,
			Variants: []entities.StrengthVariant{
				{Strength: "10 mg", ProductCodes: []string{"1001"}},
				{Strength: "40 mg", ProductCodes: []string{"1002"}},
				{Strength: "400 mg", ProductCodes: []string{"1003"}},
			},
		},
		{
			ATCCode: "N02AA05", Name: "Oxycodone Actavis", Form: entities.FormKapsel,
			Variants: []entities.StrengthVariant{
				{Strength: "5 mg", ProductCodes: []string{"4992"}},
				{Strength: "10 mg", ProductCodes: []string{"4993"}},
			},
		},
		{
			ATCCode: "N02AA05", Name: "Oxynorm", Form: entities.FormKapsel,
			Variants: []entities.StrengthVariant{{Strength: "5 mg", ProductCodes: []string{"160304"}}},
		},
		{
			ATCCode: "N02AE01", Name: "Buprenorphine", Form: entities.FormSublingvaltablett,
			Variants: []entities.StrengthVariant{
				{Strength: "0,4 mg", ProductCodes: []string{"89309"}},
				{Strength: "0,2 mg", ProductCodes: []string{"592558"}},
			},
		},
		{
			ATCCode: "N02AA01", Name: "Morfin", Form: entities.FormMikstur,
			Variants: []entities.StrengthVariant{{Strength: "1 mg/ml", ProductCodes: []string{"100"}}},
		},
	}})
}

func labels(results []Suggestion) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Option.Label
	}
	return out
}

func TestRankNumericTokensMatchExactly(t *testing.T) {
	idx := testIndex()

	results := Rank("oxycodone xirom 40 mg", idx, 0)
	if len(results) != 1 {
		t.Fatalf("Expected only the 40 mg option, got %v", labels(results))
	}
	if results[0].Option.Code != "1002" {
		t.Errorf("Expected code 1002, got %s", results[0].Option.Code)
	}
	if results[0].Score != 14 {
		t.Errorf("Expected score 14, got %d", results[0].Score)
	}
}

func TestRankPrefixMatchesText(t *testing.T) {
	idx := testIndex()

	results := Rank("xirom", idx, 0)
	if len(results) != 3 {
		t.Fatalf("Expected 3 Xiromed options, got %v", labels(results))
	}
	if results[0].Score != 4 {
		t.Errorf("Expected score 4, got %d", results[0].Score)
	}

	if got := Rank("medx", idx, 0); len(got) != 0 {
		t.Errorf("Expected no match for medx, got %v", labels(got))
	}
}

func TestRankDropsZeroScores(t *testing.T) {
	idx := testIndex()

	// Short tokens are not required, so every option passes and only scoring filters
	if got := Rank("qz", idx, 0); len(got) != 0 {
		t.Errorf("Expected zero-score options to be dropped, got %v", labels(got))
	}

	results := Rank("ox", idx, 0)
	if len(results) != 6 {
		t.Fatalf("Expected the 6 oxycodone and Oxynorm options, got %v", labels(results))
	}
	for _, r := range results {
		if r.Score <= 0 {
			t.Errorf("Expected a positive score for %s, got %d", r.Option.Label, r.Score)
		}
	}
}

func TestRankTiesKeepCatalogOrder(t *testing.T) {
	idx := testIndex()

	results := Rank("oxycodone", idx, 0)
	expected := []string{"1001", "1002", "1003", "4992", "4993"}
	if len(results) != len(expected) {
		t.Fatalf("Expected %d results, got %v", len(expected), labels(results))
	}
	for i, code := range expected {
		if results[i].Option.Code != code {
			t.Errorf("Expected result %d to be %s, got %s", i, code, results[i].Option.Code)
		}
		// Required token plus the whole-query bonus
		if results[i].Score != 10 {
			t.Errorf("Expected tie score 10, got %d", results[i].Score)
		}
	}
}

func TestRankRequiredDecimal(t *testing.T) {
	idx := testIndex()

	results := Rank("buprenorphine 0,4", idx, 0)
	if len(results) != 1 || results[0].Option.Code != "89309" {
		t.Fatalf("Expected only the 0,4 mg option, got %v", labels(results))
	}
}

func TestRankWholeQueryBonus(t *testing.T) {
	idx := testIndex()

	pasted := Rank("Oxycodone Xiromed depottablett 40 mg", idx, 0)
	if len(pasted) != 1 {
		t.Fatalf("Expected one result, got %v", labels(pasted))
	}
	partial := Rank("oxycodone xiromed 40 mg", idx, 0)
	if len(partial) != 1 {
		t.Fatalf("Expected one result, got %v", labels(partial))
	}
	if pasted[0].Score <= partial[0].Score {
		t.Errorf("Expected pasted line to score higher (%d) than partial (%d)", pasted[0].Score, partial[0].Score)
	}
}

func TestRankAddingRequiredTokenNeverLowersPosition(t *testing.T) {
	idx := testIndex()

	before := Rank("oxycodone 10 mg", idx, 0)
	after := Rank("oxycodone actavis 10 mg", idx, 0)

	position := func(results []Suggestion, code string) int {
		for i, r := range results {
			if r.Option.Code == code {
				return i
			}
		}
		return -1
	}

	pb, pa := position(before, "4993"), position(after, "4993")
	if pb < 0 || pa < 0 {
		t.Fatalf("Expected Actavis 10 mg in both result sets, got %v and %v", labels(before), labels(after))
	}
	if pa > pb {
		t.Errorf("Expected position not to worsen, went from %d to %d", pb, pa)
	}
	if pa != 0 {
		t.Errorf("Expected Actavis 10 mg first, got position %d", pa)
	}
}

func TestRankByCodePrefix(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		query    string
		expected []string
	}{
		{"1", []string{"100", "1001", "1002", "1003", "160304"}},
		{"100", []string{"100", "1001", "1002", "1003"}},
		{"00100", []string{"100", "1001", "1002", "1003"}},
		{"1603", []string{"160304"}},
		{"777", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results := Rank(tt.query, idx, 0)
			if len(results) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, labels(results))
			}
			for i, code := range tt.expected {
				if results[i].Option.Code != code {
					t.Errorf("Expected result %d to be %s, got %s", i, code, results[i].Option.Code)
				}
			}
		})
	}
}

func TestRankLimits(t *testing.T) {
	idx := testIndex()

	if got := Rank("1", idx, 2); len(got) != 2 {
		t.Errorf("Expected 2 results, got %d", len(got))
	}
	if got := Rank("oxycodone", idx, -1); len(got) != 5 {
		t.Errorf("Expected unlimited results, got %d", len(got))
	}
	if got := Rank("", idx, 10); len(got) != 0 {
		t.Errorf("Expected no results for empty query, got %d", len(got))
	}
	if got := Rank("stk tablett", idx, 10); len(got) != 0 {
		t.Errorf("Expected no results for noise-only query, got %d", len(got))
	}
	if got := Rank("oxy", nil, 10); len(got) != 0 {
		t.Errorf("Expected no results without index, got %d", len(got))
	}
}

func TestRankSimple(t *testing.T) {
	idx := testIndex()

	starts := RankSimple("oxy", idx, 0)
	if len(starts) != 6 {
		t.Fatalf("Expected 6 options starting with oxy, got %v", labels(starts))
	}
	if starts[0].Option.Label != "Oxycodone Actavis kapsel 10 mg (4993)" {
		t.Errorf("Expected label order, got %s first", starts[0].Option.Label)
	}

	contains := RankSimple("kapsel", idx, 0)
	if len(contains) != 3 {
		t.Errorf("Expected 3 options containing kapsel, got %v", labels(contains))
	}

	if got := RankSimple("", idx, 4); len(got) != 4 {
		t.Errorf("Expected first 4 options for empty query, got %d", len(got))
	}
}

func TestRankerModes(t *testing.T) {
	idx := testIndex()

	r := NewRanker(ModeSimple, 0)
	if r.MaxResults != DefaultMaxResults {
		t.Errorf("Expected default limit %d, got %d", DefaultMaxResults, r.MaxResults)
	}
	if got := r.Rank("kapsel", idx); len(got) != 3 {
		t.Errorf("Expected simple mode results, got %v", labels(got))
	}

	r = NewRanker("", 1)
	if r.Mode != ModeToken {
		t.Errorf("Expected token mode by default, got %s", r.Mode)
	}
	if got := r.Rank("oxycodone", idx); len(got) != 1 {
		t.Errorf("Expected limit 1, got %d", len(got))
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected Mode
		wantErr  bool
	}{
		{"token", ModeToken, false},
		{"", ModeToken, false},
		{" SIMPLE ", ModeSimple, false},
		{"fuzzy", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q): expected error %v, got %v", tt.input, tt.wantErr, err)
		}
		if got != tt.expected {
			t.Errorf("ParseMode(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func BenchmarkRank(b *testing.B) {
	idx := testIndex()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank("oxycodone actavis 10 mg", idx, DefaultMaxResults)
	}
}
