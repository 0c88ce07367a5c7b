package models

import "math"

const (
	// KcalPerGramProtein is the Atwater factor for protein.
	KcalPerGramProtein = 4.0
	// KcalPerGramCarbs is the Atwater factor for carbohydrates.
	KcalPerGramCarbs = 4.0
	// KcalPerGramFat is the Atwater factor for fat.
	KcalPerGramFat = 9.0
)

// MacroTotals holds calories and macro-nutrient grams. Missing fields decode as 0.
type MacroTotals struct {
	Calories float64 `bson:"calories" json:"calories"`
	Protein  float64 `bson:"protein" json:"protein"`
	Carbs    float64 `bson:"carbs" json:"carbs"`
	Fat      float64 `bson:"fat" json:"fat"`
}

// Add returns the field-wise sum of m and other.
func (m MacroTotals) Add(other MacroTotals) MacroTotals {
	return MacroTotals{
		Calories: m.Calories + other.Calories,
		Protein:  m.Protein + other.Protein,
		Carbs:    m.Carbs + other.Carbs,
		Fat:      m.Fat + other.Fat,
	}
}

// SubtractClamped returns max(0, m-other) per field so a running total never
// turns negative.
func (m MacroTotals) SubtractClamped(other MacroTotals) MacroTotals {
	return MacroTotals{
		Calories: clampSub(m.Calories, other.Calories),
		Protein:  clampSub(m.Protein, other.Protein),
		Carbs:    clampSub(m.Carbs, other.Carbs),
		Fat:      clampSub(m.Fat, other.Fat),
	}
}

// Scale multiplies each field by factor. Negative factors are treated as 0.
func (m MacroTotals) Scale(factor float64) MacroTotals {
	if factor < 0 || math.IsNaN(factor) {
		factor = 0
	}
	return MacroTotals{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fat:      m.Fat * factor,
	}
}

// ScaleChecked is Scale with the factor validated instead of coerced.
func (m MacroTotals) ScaleChecked(factor float64) (MacroTotals, error) {
	if factor < 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return MacroTotals{}, Validationf("scale factor %v must be a finite number >= 0", factor)
	}
	return m.Scale(factor), nil
}

// Validate rejects non-finite and negative fields.
func (m MacroTotals) Validate() error {
	fields := [...]struct {
		name  string
		value float64
	}{
		{"calories", m.Calories},
		{"protein", m.Protein},
		{"carbs", m.Carbs},
		{"fat", m.Fat},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return Validationf("%s must be a finite number", f.name)
		}
		if f.value < 0 {
			return Validationf("%s must not be negative, got %v", f.name, f.value)
		}
	}
	return nil
}

// IsZero reports whether every field is zero.
func (m MacroTotals) IsZero() bool {
	return m == MacroTotals{}
}

// DerivedCalories converts the macro grams to kcal with the Atwater factors.
func (m MacroTotals) DerivedCalories() float64 {
	return m.Protein*KcalPerGramProtein + m.Carbs*KcalPerGramCarbs + m.Fat*KcalPerGramFat
}

// SumMacros folds Add over values starting at zero.
func SumMacros(values ...MacroTotals) MacroTotals {
	var total MacroTotals
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func clampSub(a, b float64) float64 {
	if d := a - b; d > 0 {
		return d
	}
	return 0
}
