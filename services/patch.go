package services

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"covid-risk-areas/areas"
	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

// UnifiedPatch returns a unified diff from source to current with one line
// per area, "level<TAB>address". A nil source diffs against nothing.
func UnifiedPatch(source, current *models.Snapshot) (string, error) {
	fromFile := "/dev/null"
	var from []string
	if source != nil {
		fromFile = "covid@" + utils.FormatMonthDayTime(source.CreatedAt())
		from = patchLines(source)
	}

	diff := difflib.UnifiedDiff{
		A:        from,
		B:        patchLines(current),
		FromFile: fromFile,
		ToFile:   "covid@" + utils.FormatMonthDayTime(current.CreatedAt()),
		Context:  1,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("patch: diff snapshots: %w", err)
	}
	return text, nil
}

func patchLines(s *models.Snapshot) []string {
	lines := make([]string, 0, len(s.High)+len(s.Middle))
	for _, a := range s.High {
		lines = append(lines, LevelHigh+"\t"+areas.Address(a)+"\n")
	}
	for _, a := range s.Middle {
		lines = append(lines, LevelMiddle+"\t"+areas.Address(a)+"\n")
	}
	return lines
}
