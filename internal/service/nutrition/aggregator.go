package nutrition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/repository/documents"
)

// DefaultSeriesDays is the window of the weekly chart.
const DefaultSeriesDays = 7

// GoalReader provides the daily target a day is measured against.
type GoalReader interface {
	Goal(ctx context.Context, userID string) (models.GoalTarget, error)
}

// DayView is everything a daily progress screen renders.
type DayView struct {
	Ledger       models.DailyLedger       `json:"ledger"`
	Goal         models.GoalTarget        `json:"goal"`
	Progress     models.Progress          `json:"progress"`
	Distribution models.MacroDistribution `json:"distribution"`
}

// Service owns every mutation of the daily ledgers.
type Service struct {
	store    documents.Store
	goals    GoalReader
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the aggregator. loc is the canonical zone used to decide
// which calendar date "today" is.
func NewService(store documents.Store, goals GoalReader, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    store,
		goals:    goals,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Today returns the current calendar date in the canonical zone.
func (s *Service) Today() string {
	return models.Today(s.location, s.now())
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// AddMealToDay appends entry to the ledger of (userID, date), creating the
// ledger when needed. Re-sending an entry id that is already recorded is a
// no-op, so a caller may retry an unacknowledged write.
func (s *Service) AddMealToDay(ctx context.Context, userID, date string, entry models.MealEntry) (models.DailyLedger, error) {
	date, err := validateKey(userID, date)
	if err != nil {
		return models.DailyLedger{}, err
	}
	if err := entry.Validate(); err != nil {
		return models.DailyLedger{}, err
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = s.now().UTC()
	}

	path := documents.LedgerPath(userID, date)
	ledger, err := documents.Mutate(ctx, s.store, path, func(ledger *models.DailyLedger, exists bool) (bool, error) {
		if !exists {
			*ledger = models.NewDailyLedger(userID, date)
		}
		if _, dup := ledger.Find(entry.ID); dup {
			return false, nil
		}
		ledger.Append(entry)
		return true, nil
	})
	if err != nil {
		s.logger.Error("failed to add meal", zap.String("user_id", userID), zap.String("date", date), zap.Error(err))
		return models.DailyLedger{}, models.Persistence("add meal", err)
	}

	s.logger.Debug("meal added",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.String("entry_id", entry.ID),
		zap.Float64("total_calories", ledger.Total.Calories))
	return normalizeLedger(ledger, userID, date), nil
}

// RemoveMealFromDay drops entryID from the ledger of (userID, date). A missing
// entry is a successful no-op; a missing ledger is ErrNotFound.
func (s *Service) RemoveMealFromDay(ctx context.Context, userID, date, entryID string) (models.DailyLedger, error) {
	date, err := validateKey(userID, date)
	if err != nil {
		return models.DailyLedger{}, err
	}
	if entryID == "" {
		return models.DailyLedger{}, models.Validationf("meal entry id must not be empty")
	}

	path := documents.LedgerPath(userID, date)
	missing := false
	ledger, err := documents.Mutate(ctx, s.store, path, func(ledger *models.DailyLedger, exists bool) (bool, error) {
		missing = !exists
		if missing {
			return false, nil
		}
		_, removed := ledger.Remove(entryID)
		return removed, nil
	})
	if err != nil {
		s.logger.Error("failed to remove meal", zap.String("user_id", userID), zap.String("date", date), zap.Error(err))
		return models.DailyLedger{}, models.Persistence("remove meal", err)
	}
	if missing {
		return models.DailyLedger{}, models.NotFoundf("no ledger for user %s on %s", userID, date)
	}

	s.logger.Debug("meal removed", zap.String("user_id", userID), zap.String("date", date), zap.String("entry_id", entryID))
	return normalizeLedger(ledger, userID, date), nil
}

// GetDay returns the ledger of (userID, date); an absent ledger reads as empty.
func (s *Service) GetDay(ctx context.Context, userID, date string) (models.DailyLedger, error) {
	date, err := validateKey(userID, date)
	if err != nil {
		return models.DailyLedger{}, err
	}

	snap, err := s.store.Get(ctx, documents.LedgerPath(userID, date))
	if errors.Is(err, documents.ErrNotFound) {
		return models.NewDailyLedger(userID, date), nil
	}
	if err != nil {
		return models.DailyLedger{}, models.Persistence("load ledger", err)
	}

	var ledger models.DailyLedger
	if err := snap.Decode(&ledger); err != nil {
		return models.DailyLedger{}, models.Persistence("decode ledger", err)
	}
	return normalizeLedger(ledger, userID, date), nil
}

// DayView loads the ledger with the goal and derived progress figures.
func (s *Service) DayView(ctx context.Context, userID, date string) (DayView, error) {
	ledger, err := s.GetDay(ctx, userID, date)
	if err != nil {
		return DayView{}, err
	}
	goal, err := s.goal(ctx, userID)
	if err != nil {
		return DayView{}, err
	}
	return BuildDayView(ledger, goal), nil
}

// BuildDayView derives progress and distribution for a loaded ledger.
func BuildDayView(ledger models.DailyLedger, goal models.GoalTarget) DayView {
	return DayView{
		Ledger:       ledger,
		Goal:         goal,
		Progress:     ComputeProgress(ledger.Total, goal),
		Distribution: ComputeMacroDistribution(ledger.Total),
	}
}

// ComputeWeeklySeries returns days consecutive totals ending at endDate, oldest
// first. Dates without a ledger contribute zeros.
func (s *Service) ComputeWeeklySeries(ctx context.Context, userID, endDate string, days int) (models.WeeklySeries, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.WeeklySeries{}, err
	}
	dates, err := models.DateRange(endDate, days)
	if err != nil {
		return models.WeeklySeries{}, err
	}

	snaps, err := s.store.List(ctx, documents.LedgerCollection(userID), dates[0], dates[len(dates)-1])
	if err != nil {
		return models.WeeklySeries{}, models.Persistence("list ledgers", err)
	}

	totals := make(map[string]models.MacroTotals, len(snaps))
	for _, snap := range snaps {
		var ledger models.DailyLedger
		if err := snap.Decode(&ledger); err != nil {
			return models.WeeklySeries{}, models.Persistence("decode ledger", err)
		}
		totals[snap.Key] = ledger.Total
	}

	series := models.WeeklySeries{
		Dates:    dates,
		Calories: make([]float64, len(dates)),
		Protein:  make([]float64, len(dates)),
		Carbs:    make([]float64, len(dates)),
		Fat:      make([]float64, len(dates)),
	}
	for i, date := range dates {
		total := totals[date]
		series.Calories[i] = total.Calories
		series.Protein[i] = total.Protein
		series.Carbs[i] = total.Carbs
		series.Fat[i] = total.Fat
	}
	return series, nil
}

// WatchDay pushes the ledger of (userID, date) to onChange on every change,
// starting with its current state. Call the returned function to stop.
func (s *Service) WatchDay(ctx context.Context, userID, date string, onChange func(models.DailyLedger)) (func(), error) {
	date, err := validateKey(userID, date)
	if err != nil {
		return nil, err
	}

	unsubscribe, err := s.store.Subscribe(ctx, documents.LedgerPath(userID, date), func(snap documents.Snapshot) {
		ledger := models.NewDailyLedger(userID, date)
		if snap.Exists {
			if err := snap.Decode(&ledger); err != nil {
				s.logger.Warn("skip undecodable ledger update", zap.String("path", snap.Path), zap.Error(err))
				return
			}
		}
		onChange(normalizeLedger(ledger, userID, date))
	})
	if err != nil {
		return nil, models.Persistence("subscribe ledger", err)
	}
	return unsubscribe, nil
}

func (s *Service) goal(ctx context.Context, userID string) (models.GoalTarget, error) {
	if s.goals == nil {
		return models.DefaultGoal(), nil
	}
	goal, err := s.goals.Goal(ctx, userID)
	if err != nil {
		return models.GoalTarget{}, fmt.Errorf("load goal: %w", err)
	}
	return goal, nil
}

func validateKey(userID, date string) (string, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return "", err
	}
	return models.NormalizeDate(date)
}

func normalizeLedger(ledger models.DailyLedger, userID, date string) models.DailyLedger {
	if ledger.UserID == "" {
		ledger.UserID = userID
	}
	if ledger.Date == "" {
		ledger.Date = date
	}
	if ledger.Meals == nil {
		ledger.Meals = []models.MealEntry{}
	}
	return ledger
}
