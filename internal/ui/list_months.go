package ui

import (
	"fmt"

	"github.com/forest-guardian/rainfall-cli/internal/period"
)

// ListMonths prints every month range of a year span.
func ListMonths(s *Session) {
	start, end, err := ReadYearSpan(s.config.Analysis.StartYear, s.config.Analysis.EndYear)
	if err != nil {
		PrintError(err.Error())
		return
	}
	months, err := period.MonthRanges(start, end)
	if err != nil {
		PrintError(err.Error())
		return
	}

	fmt.Printf("\n%s%d months in %s:%s\n", ColorGreen, len(months), period.Label(months), ColorReset)
	for _, m := range months {
		fmt.Printf("%s- %s%s\n", ColorGreen, m.String(), ColorReset)
	}
}
