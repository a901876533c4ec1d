package scraper

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kapu/herobuilds-api-go/internal/domain"
	"go.uber.org/zap"
)

// Selectors for the rendered statistics pages.
const (
	rosterTableSelector = "table.hero-stats"
	rosterRowSelector   = "tbody tr"

	talentTableSelector = "#talent-tiers"
	talentTierSelector  = ".talent-tier"
	talentRowSelector   = ".talent"
	buildTableSelector  = "#popular-builds"
	buildRowSelector    = ".build"
)

// Parser reads rendered HTML into domain records.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseRoster reads the hero statistics table. A table without rows is an empty roster;
// a page without the table is a structure error.
func (p *Parser) ParseRoster(r io.Reader) (*domain.RosterSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("HTML parse failed: %w", err)
	}

	table := doc.Find(rosterTableSelector).First()
	if table.Length() == 0 {
		return nil, &StructureChangedError{Message: "hero table not found - page structure may have changed"}
	}

	snapshot := &domain.RosterSnapshot{Heroes: make([]domain.HeroSummary, 0)}
	parseErrors := 0

	table.Find(rosterRowSelector).Each(func(i int, row *goquery.Selection) {
		// Placeholder rows ("no data for this filter") have no name cell.
		if row.Find(".name").Length() == 0 {
			return
		}
		hero, err := p.parseHeroRow(row)
		if err != nil {
			parseErrors++
			p.logger.Debug("Failed to parse hero row", zap.Int("row", i), zap.Error(err))
			return
		}
		snapshot.Heroes = append(snapshot.Heroes, hero)
	})

	if parseErrors > 0 && len(snapshot.Heroes) == 0 {
		return nil, &StructureChangedError{Message: "no hero rows could be parsed", ParseErrors: parseErrors}
	}
	if parseErrors > len(snapshot.Heroes)/2 {
		p.logger.Warn("High parse error rate in roster",
			zap.Int("successes", len(snapshot.Heroes)),
			zap.Int("errors", parseErrors))
	}

	return snapshot, nil
}

func (p *Parser) parseHeroRow(row *goquery.Selection) (domain.HeroSummary, error) {
	name := cellText(row, ".name")
	if name == "" {
		return domain.HeroSummary{}, fmt.Errorf("row has no hero name")
	}

	image, _ := row.Find(".name img").Attr("src")

	return domain.HeroSummary{
		Name:         name,
		Winrate:      parseFloat(cellText(row, ".winrate")),
		WinrateDelta: parseFloat(cellText(row, ".winrate-delta")),
		Popularity:   parseFloat(cellText(row, ".popularity")),
		Pickrate:     parseFloat(cellText(row, ".pickrate")),
		Banrate:      parseFloat(cellText(row, ".banrate")),
		GamesPlayed:  parseInt(cellText(row, ".games-played")),
		ImageRef:     strings.TrimSpace(image),
	}, nil
}

// ParseDetail reads the talent tiers and popular builds of a hero page. Missing
// tiers yield an empty detail; a page without the talent container is a structure error.
func (p *Parser) ParseDetail(r io.Reader) (*domain.EntityDetail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("HTML parse failed: %w", err)
	}

	talents := doc.Find(talentTableSelector).First()
	if talents.Length() == 0 {
		return nil, &StructureChangedError{Message: "talent container not found - page structure may have changed"}
	}

	detail := &domain.EntityDetail{
		TalentTiers: make([][]domain.Talent, 0, 7),
		Builds:      make([]domain.Build, 0),
	}

	talents.Find(talentTierSelector).Each(func(_ int, tier *goquery.Selection) {
		row := make([]domain.Talent, 0, 4)
		tier.Find(talentRowSelector).Each(func(_ int, sel *goquery.Selection) {
			if talent, ok := parseTalent(sel); ok {
				row = append(row, talent)
			}
		})
		detail.TalentTiers = append(detail.TalentTiers, row)
	})

	doc.Find(buildTableSelector).Find(buildRowSelector).Each(func(i int, sel *goquery.Selection) {
		build, ok := parseBuild(sel)
		if !ok {
			p.logger.Debug("Skipping build without code", zap.Int("row", i))
			return
		}
		detail.Builds = append(detail.Builds, build)
	})

	return detail, nil
}

func parseTalent(sel *goquery.Selection) (domain.Talent, bool) {
	name := cellText(sel, ".talent-name")
	if name == "" {
		return domain.Talent{}, false
	}

	image, _ := sel.Find("img").First().Attr("src")

	return domain.Talent{
		Name:        name,
		Description: cellText(sel, ".talent-description"),
		Keybinding:  cellText(sel, ".talent-hotkey"),
		Winrate:     parseFloat(cellText(sel, ".talent-winrate")),
		Popularity:  parseFloat(cellText(sel, ".talent-popularity")),
		GamesPlayed: parseInt(cellText(sel, ".talent-games")),
		Wins:        parseInt(cellText(sel, ".talent-wins")),
		Losses:      parseInt(cellText(sel, ".talent-losses")),
		ImageRef:    strings.TrimSpace(image),
	}, true
}

func parseBuild(sel *goquery.Selection) (domain.Build, bool) {
	code, ok := sel.Attr("data-build-code")
	if !ok || strings.TrimSpace(code) == "" {
		code = cellText(sel, ".build-code")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Build{}, false
	}

	names := make([]string, 0, 7)
	sel.Find(".build-talent").Each(func(_ int, t *goquery.Selection) {
		name, ok := t.Attr("title")
		if !ok {
			name, _ = t.Find("img").Attr("alt")
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	})

	return domain.Build{
		TalentNames: names,
		Code:        code,
		GamesPlayed: parseInt(cellText(sel, ".build-games")),
		Wins:        parseInt(cellText(sel, ".build-wins")),
		Losses:      parseInt(cellText(sel, ".build-losses")),
		Winrate:     parseFloat(cellText(sel, ".build-winrate")),
	}, true
}

func cellText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

// parseFloat reads values such as "52.3 %", "+1.2", "-0.4" or "1,024.5". Unreadable cells are 0.
func parseFloat(raw string) float64 {
	cleaned := strings.NewReplacer("%", "", ",", "", "+", "", " ", "").Replace(raw)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseInt reads values such as "12,345". Unreadable cells are 0.
func parseInt(raw string) int {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(raw)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.Atoi(cleaned)
	if err != nil {
		return int(parseFloat(raw))
	}
	return v
}
