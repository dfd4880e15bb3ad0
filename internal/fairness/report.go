package fairness

import (
	"fmt"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

// Report is the fairness view of one month.
type Report struct {
	Month           string                 `json:"month"`
	WindowStart     calendar.Date          `json:"window_start"`
	WindowEnd       calendar.Date          `json:"window_end"`
	Points          map[string]int         `json:"points"`
	Partners        []model.Partner        `json:"partners"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

// Input gathers what BuildReport reads. Catalog defaults to DefaultCatalog.
type Input struct {
	Anchor     calendar.Date
	Today      calendar.Date
	Partners   []model.Partner
	Tasks      TaskSource
	Conditions []model.ConditionEntry
	Catalog    []model.Recommendation
}

// BuildReport computes loads over the rolling window around the anchor month,
// annotates the roster and assigns the catalog. It is recomputed on every
// call.
func BuildReport(in Input) Report {
	start, end := RollingWindow(in.Anchor)
	var loads map[string]int
	if in.Tasks != nil {
		loads = PointsByPartner(in.Tasks, start, end)
	} else {
		loads = map[string]int{}
	}
	catalog := in.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	scoreOf := Scorer(in.Conditions, in.Today)

	return Report{
		Month:           fmt.Sprintf("%04d-%02d", in.Anchor.Year, in.Anchor.Month),
		WindowStart:     start,
		WindowEnd:       end,
		Points:          loads,
		Partners:        Annotate(in.Partners, loads, scoreOf),
		Recommendations: AssignAll(catalog, in.Partners, loads, scoreOf),
	}
}
