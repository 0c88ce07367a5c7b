package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MealEntry is a consumed meal recorded in exactly one DailyLedger.
type MealEntry struct {
	ID              string      `bson:"id" json:"id"`
	MealReferenceID string      `bson:"mealReferenceId,omitempty" json:"mealReferenceId,omitempty"`
	DisplayName     string      `bson:"displayName" json:"displayName"`
	Macros          MacroTotals `bson:"macros" json:"macros"`
	AddedAt         time.Time   `bson:"addedAt" json:"addedAt"`
}

// PlannedEntry is a meal the user intends to eat. It lives in a MealPlan and
// never counts towards consumption until it is explicitly copied into a ledger.
type PlannedEntry struct {
	ID              string      `bson:"id" json:"id"`
	MealReferenceID string      `bson:"mealReferenceId,omitempty" json:"mealReferenceId,omitempty"`
	DisplayName     string      `bson:"displayName" json:"displayName"`
	Macros          MacroTotals `bson:"macros" json:"macros"`
	AddedAt         time.Time   `bson:"addedAt" json:"addedAt"`
}

// NewMealEntry validates the macros and stamps a fresh id.
func NewMealEntry(referenceID, displayName string, macros MacroTotals, now time.Time) (MealEntry, error) {
	if err := macros.Validate(); err != nil {
		return MealEntry{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "Meal"
	}

	return MealEntry{
		ID:              uuid.NewString(),
		MealReferenceID: strings.TrimSpace(referenceID),
		DisplayName:     displayName,
		Macros:          macros,
		AddedAt:         now.UTC(),
	}, nil
}

// NewPlannedEntry validates the macros and stamps a fresh id.
func NewPlannedEntry(referenceID, displayName string, macros MacroTotals, now time.Time) (PlannedEntry, error) {
	entry, err := NewMealEntry(referenceID, displayName, macros, now)
	if err != nil {
		return PlannedEntry{}, err
	}
	return PlannedEntry(entry), nil
}

// Validate checks an entry built outside the constructors.
func (e MealEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return Validationf("meal entry id must not be empty")
	}
	return e.Macros.Validate()
}

// ToMealEntry copies the plan into a new consumption record with its own id.
func (p PlannedEntry) ToMealEntry(now time.Time) MealEntry {
	return MealEntry{
		ID:              uuid.NewString(),
		MealReferenceID: p.MealReferenceID,
		DisplayName:     p.DisplayName,
		Macros:          p.Macros,
		AddedAt:         now.UTC(),
	}
}
