package regime

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/seenimoa/reporate/pkg/models"
)

// ErrRegimeTiling is returned by strict loaders when regimes do not tile
// the calendar cleanly.
var ErrRegimeTiling = errors.New("regimes do not tile the history")

// IssueKind classifies a tiling problem.
type IssueKind string

const (
	IssueGap      IssueKind = "gap"
	IssueOverlap  IssueKind = "overlap"
	IssueInverted IssueKind = "inverted"
	IssueUncover  IssueKind = "uncovered"
)

// TilingIssue describes one place where regimes fail to cover each date
// exactly once.
type TilingIssue struct {
	Kind   IssueKind  `json:"kind"`
	Index  int        `json:"index"` // regime index the issue was found at
	Label  string     `json:"label"`
	From   civil.Date `json:"from"`
	To     civil.Date `json:"to"`
	Detail string     `json:"detail"`
}

func (i TilingIssue) String() string {
	return fmt.Sprintf("%s at regime %d (%s): %s", i.Kind, i.Index, i.Label, i.Detail)
}

// CheckTiling reports gaps, overlaps and inverted spans between
// consecutive regimes, plus observations that no regime covers. It never
// modifies its input.
func CheckTiling(regimes []models.Regime, obs []models.RateObservation) []TilingIssue {
	var issues []TilingIssue
	for i, r := range regimes {
		if r.EndDate.Before(r.StartDate) {
			issues = append(issues, TilingIssue{
				Kind: IssueInverted, Index: i, Label: r.Label, From: r.StartDate, To: r.EndDate,
				Detail: fmt.Sprintf("ends %s before it starts %s", r.EndDate, r.StartDate),
			})
		}
		if i == 0 {
			continue
		}
		prev := regimes[i-1]
		next := prev.EndDate.AddDays(1)
		switch {
		case r.StartDate.After(next):
			issues = append(issues, TilingIssue{
				Kind: IssueGap, Index: i, Label: r.Label, From: next, To: r.StartDate.AddDays(-1),
				Detail: fmt.Sprintf("no regime covers %s..%s", next, r.StartDate.AddDays(-1)),
			})
		case r.StartDate == prev.EndDate:
			// adjacent regimes may share their boundary date
		case r.StartDate.Before(next):
			issues = append(issues, TilingIssue{
				Kind: IssueOverlap, Index: i, Label: r.Label, From: r.StartDate, To: prev.EndDate,
				Detail: fmt.Sprintf("%q and %q both cover %s..%s", prev.Label, r.Label, r.StartDate, prev.EndDate),
			})
		}
	}

	for _, o := range obs {
		covered := false
		for _, r := range regimes {
			if r.Contains(o.Date) {
				covered = true
				break
			}
		}
		if !covered {
			issues = append(issues, TilingIssue{
				Kind: IssueUncover, Index: -1, From: o.Date, To: o.Date,
				Detail: fmt.Sprintf("observation on %s has no regime", o.Date),
			})
		}
	}
	return issues
}

// TilingError bundles issues for strict loading.
type TilingError struct {
	Issues []TilingIssue
}

func (e *TilingError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", ErrRegimeTiling, e.Issues[0])
	}
	return fmt.Sprintf("%s: %d issues, first: %s", ErrRegimeTiling, len(e.Issues), e.Issues[0])
}

func (e *TilingError) Unwrap() error { return ErrRegimeTiling }
