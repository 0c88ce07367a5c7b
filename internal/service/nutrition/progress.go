package nutrition

import (
	"math"

	"github.com/Meedux/ai-meal/internal/domain/models"
)

// ComputeProgress compares consumed macros with the daily goal. Percentages are
// rounded half away from zero and clamped to [0, 100]; a goal <= 0 yields 0.
func ComputeProgress(current models.MacroTotals, goal models.GoalTarget) models.Progress {
	return models.Progress{
		Calories: fieldProgress(current.Calories, goal.Calories),
		Protein:  fieldProgress(current.Protein, goal.Protein),
		Carbs:    fieldProgress(current.Carbs, goal.Carbs),
		Fat:      fieldProgress(current.Fat, goal.Fat),
	}
}

func fieldProgress(current, goal float64) models.FieldProgress {
	return models.FieldProgress{Current: current, Goal: goal, Percentage: percentOf(current, goal)}
}

func percentOf(current, goal float64) int {
	if !(goal > 0) || math.IsInf(goal, 0) || math.IsNaN(current) {
		return 0
	}
	pct := math.Round(current / goal * 100)
	switch {
	case pct > 100:
		return 100
	case pct < 0:
		return 0
	default:
		return int(pct)
	}
}

// ComputeMacroDistribution splits the macro-derived calories (4/4/9 kcal per
// gram) into percentages. It ignores current.Calories, which may disagree with
// the grams. No calories from macros means all zeros.
func ComputeMacroDistribution(current models.MacroTotals) models.MacroDistribution {
	protein := current.Protein * models.KcalPerGramProtein
	carbs := current.Carbs * models.KcalPerGramCarbs
	fat := current.Fat * models.KcalPerGramFat

	sum := protein + carbs + fat
	if !(sum > 0) || math.IsInf(sum, 0) {
		return models.MacroDistribution{}
	}

	return models.MacroDistribution{
		Protein: int(math.Round(protein / sum * 100)),
		Carbs:   int(math.Round(carbs / sum * 100)),
		Fat:     int(math.Round(fat / sum * 100)),
	}
}
