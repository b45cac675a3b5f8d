package services

import "testing"

func TestRankForMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "Rank E: Apprentice"},
		{179, "Rank E: Apprentice"},
		{180, "Rank D: Iron Novice"},
		{599, "Rank D: Iron Novice"},
		{600, "Rank C: Bronze Warrior"},
		{1200, "Rank B: Silver Adept"},
		{3000, "Rank A: Golden Knight"},
		{5999, "Rank A: Golden Knight"},
		{6000, "Rank S: Legendary Hero"},
		{100000, "Rank S: Legendary Hero"},
	}

	for _, tc := range tests {
		if got := RankForMinutes(tc.minutes); got.Name != tc.want {
			t.Errorf("RankForMinutes(%d) = %q, want %q", tc.minutes, got.Name, tc.want)
		}
	}
}

func TestTopRankHasNoNextThreshold(t *testing.T) {
	if got := RankForMinutes(6000); got.Next != 0 {
		t.Errorf("Expected Next 0 at the top tier, got %d", got.Next)
	}
	if got := RankForMinutes(0); got.Next != 180 {
		t.Errorf("Expected Next 180 at the bottom tier, got %d", got.Next)
	}
}

func TestLevelForExp(t *testing.T) {
	tests := []struct {
		exp  int
		want int
	}{
		{-50, 1},
		{0, 1},
		{599, 1},
		{600, 2}, // first level-up costs 600
		{1299, 2},
		{1300, 3}, // second costs 700
		{2100, 4},
	}

	for _, tc := range tests {
		if got := LevelForExp(tc.exp); got != tc.want {
			t.Errorf("LevelForExp(%d) = %d, want %d", tc.exp, got, tc.want)
		}
	}
}
