package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/service/nutrition"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const logUsage = "usage: /log <kcal> <protein g> <carbs g> <fat g> [name]"

// chatEntryNamespace derives stable entry ids from chat message ids so a
// redelivered webhook does not log the same meal twice.
var chatEntryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ai-meal/whatsapp"))

// HelpText lists the commands understood by the chat channel.
const HelpText = `Commands:
/log <kcal> <protein> <carbs> <fat> [name]  log a meal for today
/today  today's progress
/week   the last seven days
/goal   your daily goal
/goal <field> <delta>  change one goal field, e.g. /goal calories -200
Or just describe what you ate.`

// MealLogger is the ledger side used by chat commands.
type MealLogger interface {
	AddMealToDay(ctx context.Context, userID, date string, entry models.MealEntry) (models.DailyLedger, error)
	Today() string
	Now() time.Time
}

// GoalManager reads and adjusts the daily goal.
type GoalManager interface {
	Goal(ctx context.Context, userID string) (models.GoalTarget, error)
	AdjustGoal(ctx context.Context, userID, field string, delta float64) (models.GoalTarget, error)
}

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	DailyDigest(ctx context.Context, userID, date string) (string, error)
	WeeklyDigest(ctx context.Context, userID, endDate string) (string, error)
}

// MacroEstimator resolves a free-text meal description.
type MacroEstimator interface {
	EstimatorEnabled() bool
	Estimate(ctx context.Context, description string) (models.Recipe, error)
}

// Dispatcher executes parsed commands on behalf of a registered user.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, userID string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	meals     MealLogger
	goals     GoalManager
	reporting ReportingAdapter
	estimator MacroEstimator
	logger    *zap.Logger
}

// NewService constructs a command dispatcher. estimator may be nil.
func NewService(meals MealLogger, goals GoalManager, reporting ReportingAdapter, estimator MacroEstimator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		meals:     meals,
		goals:     goals,
		reporting: reporting,
		estimator: estimator,
		logger:    logger,
	}
}

// HandleCommand runs cmd for userID and returns the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, userID string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("user_id", userID), zap.Strings("args", cmd.Args))

	today := s.meals.Today()

	switch cmd.Type {
	case models.CommandLog:
		macros, name, err := parseLogArgs(cmd.Args)
		if err != nil {
			return "", err
		}
		return s.logMeal(ctx, userID, today, cmd.MessageID, name, macros, false)
	case models.CommandToday:
		return s.reporting.DailyDigest(ctx, userID, today)
	case models.CommandWeek:
		return s.reporting.WeeklyDigest(ctx, userID, today)
	case models.CommandGoal:
		return s.handleGoal(ctx, userID, cmd.Args)
	case models.CommandHelp:
		return HelpText, nil
	case models.CommandUnknown:
		if cmd.IsFreeText() && s.estimator != nil && s.estimator.EstimatorEnabled() {
			recipe, err := s.estimator.Estimate(ctx, cmd.Raw)
			if err != nil {
				return "", err
			}
			return s.logMeal(ctx, userID, today, cmd.MessageID, recipe.Name, recipe.Macros, true)
		}
		return "Unknown command.\n" + HelpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) logMeal(ctx context.Context, userID, date, messageID, name string, macros models.MacroTotals, estimated bool) (string, error) {
	entry, err := models.NewMealEntry("", name, macros, s.meals.Now())
	if err != nil {
		return "", err
	}
	if messageID != "" {
		entry.ID = uuid.NewSHA1(chatEntryNamespace, []byte(messageID)).String()
	}

	ledger, err := s.meals.AddMealToDay(ctx, userID, date, entry)
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf("Logged %s: %s kcal, protein %s g, carbs %s g, fat %s g.",
		entry.DisplayName, formatAmount(macros.Calories), formatAmount(macros.Protein),
		formatAmount(macros.Carbs), formatAmount(macros.Fat))
	if estimated {
		message += " (estimated)"
	}

	goal, err := s.goals.Goal(ctx, userID)
	if err != nil {
		s.logger.Debug("goal lookup failed after logging", zap.String("user_id", userID), zap.Error(err))
		return message, nil
	}
	progress := nutrition.ComputeProgress(ledger.Total, goal)
	message += fmt.Sprintf("\nToday: %s / %s kcal (%d%%).",
		formatAmount(progress.Calories.Current), formatAmount(progress.Calories.Goal), progress.Calories.Percentage)
	return message, nil
}

func (s *Service) handleGoal(ctx context.Context, userID string, args []string) (string, error) {
	var (
		goal models.GoalTarget
		err  error
	)
	switch len(args) {
	case 0:
		goal, err = s.goals.Goal(ctx, userID)
	case 2:
		delta, parseErr := strconv.ParseFloat(args[1], 64)
		if parseErr != nil {
			return "", fmt.Errorf("%w: usage: /goal <field> <delta>", ErrInvalidArguments)
		}
		goal, err = s.goals.AdjustGoal(ctx, userID, args[0], delta)
	default:
		return "", fmt.Errorf("%w: usage: /goal <field> <delta>", ErrInvalidArguments)
	}
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Daily goal: %s kcal, protein %s g, carbs %s g, fat %s g.",
		formatAmount(goal.Calories), formatAmount(goal.Protein), formatAmount(goal.Carbs), formatAmount(goal.Fat)), nil
}

func parseLogArgs(args []string) (models.MacroTotals, string, error) {
	if len(args) < 4 {
		return models.MacroTotals{}, "", fmt.Errorf("%w: %s", ErrInvalidArguments, logUsage)
	}

	values := make([]float64, 4)
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(args[i]), "g"), 64)
		if err != nil {
			return models.MacroTotals{}, "", fmt.Errorf("%w: %s", ErrInvalidArguments, logUsage)
		}
		values[i] = v
	}

	macros := models.MacroTotals{Calories: values[0], Protein: values[1], Carbs: values[2], Fat: values[3]}
	return macros, strings.Join(args[4:], " "), nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
