package domain

// HeroSummary is one row of the roster statistics table.
type HeroSummary struct {
	Name         string  `json:"name"`
	Winrate      float64 `json:"winrate"`
	WinrateDelta float64 `json:"winrateDelta"`
	Popularity   float64 `json:"popularity"`
	Pickrate     float64 `json:"pickrate"`
	Banrate      float64 `json:"banrate"`
	GamesPlayed  int     `json:"gamesPlayed"`
	ImageRef     string  `json:"imageRef,omitempty"`
}

// RosterSnapshot keeps heroes in the order the source page listed them.
type RosterSnapshot struct {
	Heroes []HeroSummary `json:"heroes"`
}

func (r *RosterSnapshot) IsEmpty() bool {
	return r == nil || len(r.Heroes) == 0
}

func (r *RosterSnapshot) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Heroes)
}
