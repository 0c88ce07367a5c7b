package models

// FieldProgress is the progress of one macro against its goal. Current and Goal
// are raw values; Percentage is clamped to [0, 100] for progress bars.
type FieldProgress struct {
	Current    float64 `json:"current"`
	Goal       float64 `json:"goal"`
	Percentage int     `json:"percentage"`
}

// Progress holds the per-field progress of a day.
type Progress struct {
	Calories FieldProgress `json:"calories"`
	Protein  FieldProgress `json:"protein"`
	Carbs    FieldProgress `json:"carbs"`
	Fat      FieldProgress `json:"fat"`
}

// MacroDistribution is the share of calories coming from each macro, in percent.
type MacroDistribution struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// WeeklySeries is a chart-ready series, one value per date and no gaps.
type WeeklySeries struct {
	Dates    []string  `json:"dates"`
	Calories []float64 `json:"calories"`
	Protein  []float64 `json:"protein"`
	Carbs    []float64 `json:"carbs"`
	Fat      []float64 `json:"fat"`
}

// Len returns the number of dates in the series.
func (s WeeklySeries) Len() int {
	return len(s.Dates)
}

// At returns the totals recorded for the i-th date.
func (s WeeklySeries) At(i int) MacroTotals {
	return MacroTotals{Calories: s.Calories[i], Protein: s.Protein[i], Carbs: s.Carbs[i], Fat: s.Fat[i]}
}

// WeeklySummary condenses a series for digests.
type WeeklySummary struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Total      MacroTotals `json:"total"`
	Average    MacroTotals `json:"average"`
	DaysLogged int         `json:"daysLogged"`
}

// Summarize totals the series. Average is taken over every date in the window
// so empty days pull the average down.
func (s WeeklySeries) Summarize() WeeklySummary {
	summary := WeeklySummary{}
	if s.Len() == 0 {
		return summary
	}
	summary.From = s.Dates[0]
	summary.To = s.Dates[s.Len()-1]

	for i := 0; i < s.Len(); i++ {
		day := s.At(i)
		if !day.IsZero() {
			summary.DaysLogged++
		}
		summary.Total = summary.Total.Add(day)
	}
	summary.Average = summary.Total.Scale(1 / float64(s.Len()))
	return summary
}
