package models

import "math"

const reconcileTolerance = 1e-9

// DailyLedger is the consumption record of one user for one calendar date.
// Total always equals the sum of Meals[*].Macros.
type DailyLedger struct {
	UserID string      `bson:"userId" json:"userId"`
	Date   string      `bson:"date" json:"date"`
	Total  MacroTotals `bson:"total" json:"total"`
	Meals  []MealEntry `bson:"meals" json:"meals"`
}

// NewDailyLedger returns an empty ledger for the given key.
func NewDailyLedger(userID, date string) DailyLedger {
	return DailyLedger{UserID: userID, Date: date, Meals: []MealEntry{}}
}

// Append records entry and adds its macros to the running total.
func (l *DailyLedger) Append(entry MealEntry) {
	l.Meals = append(l.Meals, entry)
	l.Total = l.Total.Add(entry.Macros)
}

// Remove drops the entry with the given id and subtracts its macros, clamped
// at zero. It reports false when no such entry exists.
func (l *DailyLedger) Remove(entryID string) (MealEntry, bool) {
	for i, entry := range l.Meals {
		if entry.ID != entryID {
			continue
		}
		l.Meals = append(l.Meals[:i:i], l.Meals[i+1:]...)
		l.Total = l.Total.SubtractClamped(entry.Macros)
		if len(l.Meals) == 0 {
			l.Total = MacroTotals{}
		}
		return entry, true
	}
	return MealEntry{}, false
}

// Find returns the entry with the given id.
func (l DailyLedger) Find(entryID string) (MealEntry, bool) {
	for _, entry := range l.Meals {
		if entry.ID == entryID {
			return entry, true
		}
	}
	return MealEntry{}, false
}

// SumMeals recomputes the total from the meal list.
func (l DailyLedger) SumMeals() MacroTotals {
	var total MacroTotals
	for _, entry := range l.Meals {
		total = total.Add(entry.Macros)
	}
	return total
}

// Reconciled reports whether Total matches the sum of the meals.
func (l DailyLedger) Reconciled() bool {
	sum := l.SumMeals()
	return closeTo(sum.Calories, l.Total.Calories) &&
		closeTo(sum.Protein, l.Total.Protein) &&
		closeTo(sum.Carbs, l.Total.Carbs) &&
		closeTo(sum.Fat, l.Total.Fat)
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= reconcileTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
