package models

// MealPlan is the users/{userId}/mealPlan/{date} document.
type MealPlan struct {
	UserID  string         `bson:"userId" json:"userId"`
	Date    string         `bson:"date" json:"date"`
	Entries []PlannedEntry `bson:"entries" json:"entries"`
}

// NewMealPlan returns an empty plan for the given key.
func NewMealPlan(userID, date string) MealPlan {
	return MealPlan{UserID: userID, Date: date, Entries: []PlannedEntry{}}
}

// Find returns the planned entry with the given id.
func (p MealPlan) Find(entryID string) (PlannedEntry, bool) {
	for _, entry := range p.Entries {
		if entry.ID == entryID {
			return entry, true
		}
	}
	return PlannedEntry{}, false
}

// Remove drops the planned entry with the given id.
func (p *MealPlan) Remove(entryID string) bool {
	for i, entry := range p.Entries {
		if entry.ID == entryID {
			p.Entries = append(p.Entries[:i:i], p.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// PlannedMacros sums the macros of every planned entry.
func (p MealPlan) PlannedMacros() MacroTotals {
	var total MacroTotals
	for _, entry := range p.Entries {
		total = total.Add(entry.Macros)
	}
	return total
}

// Recipe is a recipes/{recipeId} document as seen by the ledger. Macros are per
// serving and already resolved by the recipe service.
type Recipe struct {
	ID       string      `bson:"id" json:"id"`
	Name     string      `bson:"name" json:"name"`
	Image    string      `bson:"image,omitempty" json:"image,omitempty"`
	Macros   MacroTotals `bson:"macros" json:"macros"`
	Servings float64     `bson:"servings,omitempty" json:"servings,omitempty"`
}
