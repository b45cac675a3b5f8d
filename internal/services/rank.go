package services

// Reward policy constants. EXP earned from a study session equals its capped
// duration in minutes; the cap also bounds the timeout sweep.
const (
	ExpPerMinute      = 1
	MaxSessionMinutes = 90
)

// Rank describes the medal tier for a total-study-minutes value.
type Rank struct {
	Name string `json:"name"`
	Min  int    `json:"min"`
	Next int    `json:"next"` // 0 when already at the top tier
}

var ranks = []Rank{
	{Name: "Rank S: Legendary Hero", Min: 6000, Next: 0},
	{Name: "Rank A: Golden Knight", Min: 3000, Next: 6000},
	{Name: "Rank B: Silver Adept", Min: 1200, Next: 3000},
	{Name: "Rank C: Bronze Warrior", Min: 600, Next: 1200},
	{Name: "Rank D: Iron Novice", Min: 180, Next: 600},
	{Name: "Rank E: Apprentice", Min: 0, Next: 180},
}

// RankForMinutes returns the rank tier for a total of study minutes.
func RankForMinutes(totalMinutes int) Rank {
	for _, r := range ranks {
		if totalMinutes >= r.Min {
			return r
		}
	}
	return ranks[len(ranks)-1]
}

// nextLevelCost is the EXP needed to go from level to level+1.
func nextLevelCost(level int) int {
	return level*100 + 500
}

// LevelForExp derives the level from lifetime EXP. Levels start at 1; the
// cost of each level-up grows linearly. Negative balances stay at level 1.
func LevelForExp(exp int) int {
	level := 1
	for exp >= nextLevelCost(level) {
		exp -= nextLevelCost(level)
		level++
	}
	return level
}
