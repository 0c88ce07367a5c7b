package models

import (
	"strings"
	"time"
)

// GoalTarget is the daily macro target of a user.
type GoalTarget struct {
	Calories float64 `bson:"calories" json:"calories"`
	Protein  float64 `bson:"protein" json:"protein"`
	Carbs    float64 `bson:"carbs" json:"carbs"`
	Fat      float64 `bson:"fat" json:"fat"`
}

// DefaultGoal is the target assigned at registration.
func DefaultGoal() GoalTarget {
	return GoalTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 70}
}

// Validate rejects non-finite and negative targets.
func (g GoalTarget) Validate() error {
	return MacroTotals(g).Validate()
}

// GoalFields lists the adjustable goal fields.
var GoalFields = []string{"calories", "protein", "carbs", "fat"}

// IsGoalField reports whether name is one of GoalFields.
func IsGoalField(name string) bool {
	for _, f := range GoalFields {
		if f == name {
			return true
		}
	}
	return false
}

// UserProfile is the users/{userId} document.
type UserProfile struct {
	UserID             string     `bson:"userId" json:"userId"`
	DisplayName        string     `bson:"displayName" json:"displayName"`
	Phone              string     `bson:"phone,omitempty" json:"phone,omitempty"`
	DietaryPreferences []string   `bson:"dietaryPreferences,omitempty" json:"dietaryPreferences,omitempty"`
	Goals              GoalTarget `bson:"goals" json:"goals"`
	CreatedAt          time.Time  `bson:"createdAt" json:"createdAt"`
}

// Validate checks identifiers and goals of a profile about to be created.
func (p UserProfile) Validate() error {
	if err := ValidateUserID(p.UserID); err != nil {
		return err
	}
	return p.Goals.Validate()
}

// ValidateUserID rejects ids that cannot be embedded in a document path.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return Validationf("user id must not be empty")
	}
	if strings.Contains(userID, "/") {
		return Validationf("user id %q must not contain '/'", userID)
	}
	return nil
}

// PhoneLink maps a WhatsApp id to a user.
type PhoneLink struct {
	Phone  string `bson:"phone" json:"phone"`
	UserID string `bson:"userId" json:"userId"`
}
