package domain

type Talent struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Keybinding  string  `json:"keybinding"`
	Winrate     float64 `json:"winrate"`
	Popularity  float64 `json:"popularity"`
	GamesPlayed int     `json:"gamesPlayed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	ImageRef    string  `json:"imageRef"`
}

type Build struct {
	TalentNames []string `json:"talentNames"`
	Code        string   `json:"code"`
	GamesPlayed int      `json:"gamesPlayed"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	Winrate     float64  `json:"winrate"`
}

// EntityDetail holds the talent tiers (level 1 first) and the popular builds of a hero.
type EntityDetail struct {
	TalentTiers [][]Talent `json:"talentTiers"`
	Builds      []Build    `json:"builds"`
}

// IsEmpty reports whether the first talent tier came back without talents.
// The source renders tiers top-down, so an empty first tier means the hero page had no data.
func (d *EntityDetail) IsEmpty() bool {
	return d == nil || len(d.TalentTiers) == 0 || len(d.TalentTiers[0]) == 0
}
