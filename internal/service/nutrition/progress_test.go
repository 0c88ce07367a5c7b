package nutrition_test

import (
	"testing"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/service/nutrition"
)

func TestComputeProgressClampsButKeepsRawValues(t *testing.T) {
	t.Parallel()

	current := models.MacroTotals{Calories: 2500, Protein: 75, Carbs: 0, Fat: 70}
	goal := models.GoalTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 70}

	progress := nutrition.ComputeProgress(current, goal)
	if progress.Calories.Percentage != 100 || progress.Calories.Current != 2500 || progress.Calories.Goal != 2000 {
		t.Fatalf("unexpected calories progress %+v", progress.Calories)
	}
	if progress.Protein.Percentage != 50 {
		t.Fatalf("expected protein 50%%, got %d", progress.Protein.Percentage)
	}
	if progress.Carbs.Percentage != 0 {
		t.Fatalf("expected carbs 0%%, got %d", progress.Carbs.Percentage)
	}
	if progress.Fat.Percentage != 100 {
		t.Fatalf("expected fat 100%%, got %d", progress.Fat.Percentage)
	}
}

func TestComputeProgressZeroOrNegativeGoal(t *testing.T) {
	t.Parallel()

	current := models.MacroTotals{Calories: 500, Protein: 20, Carbs: 30, Fat: 10}
	goal := models.GoalTarget{Calories: 0, Protein: -10, Carbs: 200, Fat: 0}

	progress := nutrition.ComputeProgress(current, goal)
	if progress.Calories.Percentage != 0 || progress.Protein.Percentage != 0 || progress.Fat.Percentage != 0 {
		t.Fatalf("expected zero percentages for non-positive goals, got %+v", progress)
	}
	if progress.Carbs.Percentage != 15 {
		t.Fatalf("expected carbs 15%%, got %d", progress.Carbs.Percentage)
	}
}

func TestComputeProgressRoundsHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current float64
		goal    float64
		want    int
	}{
		{1, 8, 13},    // 12.5
		{3, 8, 38},    // 37.5
		{1, 16, 6},    // 6.25
		{15, 16, 94},  // 93.75
		{1e9, 1, 100}, // clamped
	}
	for _, tc := range cases {
		got := nutrition.ComputeProgress(models.MacroTotals{Calories: tc.current}, models.GoalTarget{Calories: tc.goal})
		if got.Calories.Percentage != tc.want {
			t.Fatalf("%v/%v: expected %d, got %d", tc.current, tc.goal, tc.want, got.Calories.Percentage)
		}
	}
}

func TestComputeMacroDistribution(t *testing.T) {
	t.Parallel()

	even := nutrition.ComputeMacroDistribution(models.MacroTotals{Protein: 50, Carbs: 50, Fat: 0})
	if sum := even.Protein + even.Carbs + even.Fat; sum < 99 || sum > 101 {
		t.Fatalf("expected distribution to sum to ~100, got %+v", even)
	}
	if even.Protein != 50 || even.Carbs != 50 || even.Fat != 0 {
		t.Fatalf("unexpected distribution %+v", even)
	}

	zero := nutrition.ComputeMacroDistribution(models.MacroTotals{Calories: 300})
	if zero != (models.MacroDistribution{}) {
		t.Fatalf("expected all-zero distribution, got %+v", zero)
	}

	mixed := nutrition.ComputeMacroDistribution(models.MacroTotals{Calories: 9999, Protein: 30, Carbs: 40, Fat: 15})
	// 120 + 160 + 135 = 415 kcal
	if mixed.Protein != 29 || mixed.Carbs != 39 || mixed.Fat != 33 {
		t.Fatalf("unexpected mixed distribution %+v", mixed)
	}
}
