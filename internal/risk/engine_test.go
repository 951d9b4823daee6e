package risk

import (
	"testing"

	"github.com/opensource-security/shrike/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestScoreAggregation(t *testing.T) {
	engine := NewEngine()

	t.Run("EmptyInput", func(t *testing.T) {
		score, factors := engine.Score(nil, nil)
		if score != 0 {
			t.Errorf("expected score 0, got %f", score)
		}
		if len(factors) != 0 {
			t.Errorf("expected no factors, got %v", factors)
		}
	})

	t.Run("SumsWeights", func(t *testing.T) {
		traits := []domain.Trait{
			{Kind: domain.KindSuspiciousTLD, Description: "Suspicious TLD 'tk'"},
			{Kind: domain.KindLongURL, Description: "Excessively long URL"},
		}
		score, factors := engine.Score(traits, nil)
		if score != 30 { // 20 + 10
			t.Errorf("expected score 30, got %f", score)
		}
		if len(factors) != 2 {
			t.Fatalf("expected 2 factors, got %d", len(factors))
		}
	})

	t.Run("ClampedAt100", func(t *testing.T) {
		var traits []domain.Trait
		for i := 0; i < 10; i++ {
			traits = append(traits, domain.Trait{Kind: domain.KindHexEncoding, Description: "hex"})
		}
		score, _ := engine.Score(traits, nil)
		if score != 100 {
			t.Errorf("expected clamped score 100, got %f", score)
		}
	})

	t.Run("UnknownKindsIgnored", func(t *testing.T) {
		traits := []domain.Trait{
			{Kind: "future_signal", Description: "not yet weighted"},
			{Kind: domain.KindLongURL, Description: "long"},
		}
		score, factors := engine.Score(traits, nil)
		if score != 10 {
			t.Errorf("expected score 10, got %f", score)
		}
		if len(factors) != 1 {
			t.Errorf("expected 1 factor, got %d", len(factors))
		}
	})

	t.Run("SortedByWeightDescending", func(t *testing.T) {
		traits := []domain.Trait{
			{Kind: domain.KindLongURL, Description: "long"},          // 10
			{Kind: domain.KindHexEncoding, Description: "hex"},       // 30
			{Kind: domain.KindSuspiciousTLD, Description: "tld"},     // 20
			{Kind: domain.KindNonStandardPort, Description: "port"},  // 15
			{Kind: domain.KindSpecialChars, Description: "specials"}, // 15
		}
		_, factors := engine.Score(traits, nil)

		for i := 1; i < len(factors); i++ {
			if factors[i].Weight > factors[i-1].Weight {
				t.Fatalf("factors not sorted descending: %v", factors)
			}
		}

		// Stable among ties: non_standard_port arrived before special_chars.
		if factors[2].Kind != domain.KindNonStandardPort || factors[3].Kind != domain.KindSpecialChars {
			t.Errorf("tie order not stable: %v", factors)
		}
	})

	t.Run("TyposquattingScaledBySimilarity", func(t *testing.T) {
		matches := []domain.BrandMatch{
			{
				Kind:        domain.KindTyposquatting,
				Brand:       "google",
				Similarity:  intPtr(83),
				Description: "typo",
			},
		}
		score, factors := engine.Score(nil, matches)
		want := 40 * 83 / 100 // rounded toward zero
		if int(score) != want {
			t.Errorf("expected scaled score %d, got %f", want, score)
		}
		if factors[0].Weight != want {
			t.Errorf("expected factor weight %d, got %d", want, factors[0].Weight)
		}
	})

	t.Run("HomoglyphNotScaled", func(t *testing.T) {
		matches := []domain.BrandMatch{
			{Kind: domain.KindHomoglyphAttack, Brand: "google", Description: "homoglyph"},
		}
		score, _ := engine.Score(nil, matches)
		if score != 50 {
			t.Errorf("expected unscaled weight 50, got %f", score)
		}
	})
}

func TestLevelBanding(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{29.9, domain.RiskLow},
		{30, domain.RiskMedium},
		{69.9, domain.RiskMedium},
		{70, domain.RiskHigh},
		{100, domain.RiskHigh},
	}
	for _, c := range cases {
		if got := domain.LevelForScore(c.score); got != c.want {
			t.Errorf("LevelForScore(%f) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestUpdateWeights(t *testing.T) {
	t.Run("KnownKeysApplied", func(t *testing.T) {
		engine := NewEngine()
		rejected := engine.UpdateWeights(map[domain.FactorKind]int{
			domain.KindLongURL: 42,
		})
		if len(rejected) != 0 {
			t.Errorf("expected no rejected keys, got %v", rejected)
		}
		if engine.Weights()[domain.KindLongURL] != 42 {
			t.Errorf("weight not applied: %v", engine.Weights())
		}
	})

	t.Run("UnknownKeysRejected", func(t *testing.T) {
		engine := NewEngine()
		before := engine.Weights()
		rejected := engine.UpdateWeights(map[domain.FactorKind]int{
			"no_such_kind":     99,
			domain.KindLongURL: 5,
		})
		if len(rejected) != 1 || rejected[0] != "no_such_kind" {
			t.Errorf("expected no_such_kind rejected, got %v", rejected)
		}
		after := engine.Weights()
		if len(after) != len(before) {
			t.Error("unknown keys must not be inserted")
		}
		if after[domain.KindLongURL] != 5 {
			t.Error("valid keys in the same request must still apply")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		engine := NewEngine()
		update := map[domain.FactorKind]int{domain.KindPunycode: 33}
		engine.UpdateWeights(update)
		first := engine.Weights()
		engine.UpdateWeights(update)
		second := engine.Weights()

		for k, v := range first {
			if second[k] != v {
				t.Fatalf("weight table changed on repeated update: %s %d != %d", k, v, second[k])
			}
		}
	})

	t.Run("NegativeWeightRejected", func(t *testing.T) {
		engine := NewEngine()
		rejected := engine.UpdateWeights(map[domain.FactorKind]int{
			domain.KindLongURL: -1,
		})
		if len(rejected) != 1 {
			t.Errorf("expected negative weight rejected, got %v", rejected)
		}
		if engine.Weights()[domain.KindLongURL] != 10 {
			t.Error("rejected update must be a no-op")
		}
	})
}
