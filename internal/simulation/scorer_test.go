package simulation

import (
	"testing"

	"github.com/guimove/capsim/internal/model"
)

func summary(nodes, maxCPU, rate, probMem float64) model.Summary {
	return model.Summary{
		AggregateResult: model.AggregateResult{MeanNodeCount: nodes, ProbMemOverflow: probMem},
		MaxCPU:          maxCPU,
		PackingRate:     rate,
	}
}

func TestScorer_Rank(t *testing.T) {
	s := NewScorer(DefaultScoringWeights())

	in := []model.Summary{
		summary(100, 4, 2.5, 0.9), // cheapest, but overflows almost always
		summary(60, 8, 2.1, 0.0),
		summary(40, 16, 1.6, 0.0),
	}
	ranked := s.Rank(in)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ranked))
	}
	for i, r := range ranked {
		if r.Rank != i+1 {
			t.Errorf("entry %d has rank %d", i, r.Rank)
		}
		if i > 0 && r.Score > ranked[i-1].Score {
			t.Errorf("entries not sorted by score")
		}
	}
	if ranked[2].MaxCPU != 4 {
		t.Errorf("the risky configuration should rank last, got max cpu %v", ranked[2].MaxCPU)
	}
	if in[0].Rank != 0 {
		t.Error("Rank should not modify its input")
	}
	if len(ranked[2].Warnings) == 0 {
		t.Error("risky configuration should carry a warning")
	}
}

func TestScorer_UsesPriceWhenEveryEntryHasOne(t *testing.T) {
	s := NewScorer(ScoringWeights{Cost: 1})

	a := summary(10, 4, 1, 0)
	a.MonthlyCost = 500
	b := summary(10, 4, 1, 0)
	b.MonthlyCost = 300

	ranked := s.Rank([]model.Summary{a, b})
	if ranked[0].MonthlyCost != 300 {
		t.Errorf("cheaper entry should rank first, got %v", ranked[0].MonthlyCost)
	}
	if ranked[0].Score != 100 || ranked[1].Score != 0 {
		t.Errorf("unexpected scores %v, %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestScorer_Empty(t *testing.T) {
	if got := NewScorer(DefaultScoringWeights()).Rank(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestWarnings(t *testing.T) {
	s := model.Summary{
		AggregateResult: model.AggregateResult{
			Partial: true, CompletedTrials: 3, RequestedTrials: 10,
			ProbMemOverflow: 0.2,
		},
		Fragmentation: &model.FragmentationReport{UnderutilizedNodeFraction: 0.5},
	}
	if got := Warnings(s); len(got) != 3 {
		t.Errorf("expected 3 warnings, got %v", got)
	}
	if got := Warnings(model.Summary{}); len(got) != 0 {
		t.Errorf("expected no warnings, got %v", got)
	}
}
