package services

import (
	"fmt"
	"strings"
	"time"

	"covid-risk-areas/areas"
	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

// Risk level labels used in change summaries.
const (
	LevelHigh   = "high"
	LevelMiddle = "middle"
)

// Names of the synthetic top-level groups of a report.
const (
	HighGroupName   = "高风险地区"
	MiddleGroupName = "中风险地区"
)

var levelNames = map[string]string{
	LevelHigh:   "高风险地区",
	LevelMiddle: "中风险地区",
}

type StatisticService struct {
	logger *utils.Logger
}

func NewStatisticService(logger *utils.Logger) *StatisticService {
	return &StatisticService{logger: logger}
}

// Generate builds the report of current compared against source. A nil
// source produces a report without changes.
func (s *StatisticService) Generate(current, source *models.Snapshot) *models.Statistic {
	stat := &models.Statistic{
		HighSize:   len(current.High),
		MiddleSize: len(current.Middle),
		CreatedAt:  current.CreatedAt().In(utils.ShanghaiLocation()),
		UpdatedAt:  current.UpdatedAt().In(utils.ShanghaiLocation()),
		Changes:    models.ChangeSummary{},
	}

	var sourceHigh, sourceMiddle []models.Area
	if source != nil {
		at := source.CreatedAt().In(utils.ShanghaiLocation())
		stat.SourceAt = &at
		sourceHigh, sourceMiddle = nonNilAreas(source.High), nonNilAreas(source.Middle)
	}

	changes := []models.LabeledChanges{
		{Label: LevelHigh, Changes: areas.Compare(sourceHigh, nonNilAreas(current.High))},
		{Label: LevelMiddle, Changes: areas.Compare(sourceMiddle, nonNilAreas(current.Middle))},
	}
	byProvince := areas.GroupChangesBy(changes, models.FieldProvince)

	stat.Groups = []*models.AreaGroup{
		areas.Wrap(HighGroupName, areas.Group(current.High)),
		areas.Wrap(MiddleGroupName, areas.Group(current.Middle)),
	}
	stat.Rows = areas.Layout(stat.Groups)
	markNew(stat.Rows, changes)

	stat.Changes = summarizeChanges(byProvince)
	stat.Summary = describeChanges(byProvince)

	s.logger.Info("[statistic] %d high / %d middle, %d provinces changed",
		stat.HighSize, stat.MiddleSize, len(byProvince))
	return stat
}

// nonNilAreas keeps an empty list comparable; Compare treats nil as absent.
func nonNilAreas(list []models.Area) []models.Area {
	if list == nil {
		return []models.Area{}
	}
	return list
}

func markNew(rows [][]models.Cell, changes []models.LabeledChanges) {
	added := utils.NewStringSet()
	for _, lc := range changes {
		for _, a := range lc.Changes.Add {
			added.Add(areas.Address(a))
		}
	}
	if added.Size() == 0 {
		return
	}
	for _, row := range rows {
		for i := range row {
			if a, ok := row[i].Origin.(*models.Area); ok && added.Contains(areas.Address(*a)) {
				row[i].New = true
			}
		}
	}
}

func summarizeChanges(byProvince []models.KeyedChanges) models.ChangeSummary {
	out := models.ChangeSummary{}
	for _, kc := range byProvince {
		levels := make(map[string]map[string][]string, len(kc.ByLabel))
		for label, cs := range kc.ByLabel {
			levels[label] = map[string][]string{
				"add":    addrs(cs.Add),
				"remove": addrs(cs.Remove),
			}
		}
		out[kc.Key] = levels
	}
	return out
}

func addrs(list []models.Area) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Addr
	}
	return out
}

// describeChanges narrates the per-province changes, e.g.
// "上海增加2个高风险地区，减少1个中风险地区；广东广州增加1个中风险地区".
func describeChanges(byProvince []models.KeyedChanges) string {
	parts := make([]string, 0, len(byProvince))
	for _, kc := range byProvince {
		var notes []string
		cities := utils.NewStringSet()
		var city string

		for _, label := range []string{LevelHigh, LevelMiddle} {
			cs, ok := kc.ByLabel[label]
			if !ok {
				continue
			}
			for _, a := range append(append([]models.Area(nil), cs.Add...), cs.Remove...) {
				if cities.Add(a.City) {
					city = a.City
				}
			}
			if n := len(cs.Add); n > 0 {
				notes = append(notes, fmt.Sprintf("增加%d个%s", n, levelNames[label]))
			}
			if n := len(cs.Remove); n > 0 {
				notes = append(notes, fmt.Sprintf("减少%d个%s", n, levelNames[label]))
			}
		}
		if len(notes) == 0 {
			continue
		}

		head := kc.Key
		if cities.Size() == 1 && city != kc.Key {
			head += city
		}
		parts = append(parts, head+strings.Join(notes, "，"))
	}
	return strings.Join(parts, "；")
}

// Headline is the one-paragraph description used above tables and in
// workbook notes. It is dated by the scrape time, not the page's own
// update time.
func Headline(stat *models.Statistic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "截至%s", utils.FormatMonthDayTime(stat.CreatedAt))
	if stat.Summary != "" {
		fmt.Fprintf(&b, "，%s", stat.Summary)
	}
	fmt.Fprintf(&b, "。目前，国内共有%d个高风险地区，%d个中风险地区。", stat.HighSize, stat.MiddleSize)
	return b.String()
}

// Print writes a console report of stat.
func (s *StatisticService) Print(stat *models.Statistic) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 全国中高风险地区\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  As of            : \033[1m%s\033[0m\n", stat.UpdatedAt.Format(time.DateTime))
	fmt.Printf("  Scraped at       : \033[1m%s\033[0m\n", stat.CreatedAt.Format(time.DateTime))
	if stat.SourceAt != nil {
		fmt.Printf("  Compared against : \033[1m%s\033[0m\n", stat.SourceAt.Format(time.DateTime))
	}
	fmt.Printf("  High risk areas  : \033[1;31m%d\033[0m\n", stat.HighSize)
	fmt.Printf("  Middle risk areas: \033[1;33m%d\033[0m\n", stat.MiddleSize)
	fmt.Println()

	fmt.Printf("\033[1;33m  Changes\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if stat.Summary == "" {
		fmt.Printf("  No changes\n")
	} else {
		for _, part := range strings.Split(stat.Summary, "；") {
			fmt.Printf("  %s\n", part)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Areas by Province\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, top := range stat.Groups {
		fmt.Printf("  \033[1m%s(%d)\033[0m\n", top.Name, top.Size)
		for _, p := range top.Groups {
			bar := strings.Repeat("█", min(p.Size, 40))
			fmt.Printf("    %-12s %s (%d)\n", truncate(p.Name, 12), bar, p.Size)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
