package plan

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/repository/documents"
)

// MealLogger records consumption. It is satisfied by the nutrition aggregator.
type MealLogger interface {
	AddMealToDay(ctx context.Context, userID, date string, entry models.MealEntry) (models.DailyLedger, error)
}

// Service stores the planned meals of each user and day. Plans never affect
// ledger totals unless an entry is consumed.
type Service struct {
	store  documents.Store
	meals  MealLogger
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store documents.Store, meals MealLogger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		meals:  meals,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the plan of (userID, date); an absent plan reads as empty.
func (s *Service) List(ctx context.Context, userID, date string) (models.MealPlan, error) {
	date, err := validateKey(userID, date)
	if err != nil {
		return models.MealPlan{}, err
	}

	snap, err := s.store.Get(ctx, documents.PlanPath(userID, date))
	if errors.Is(err, documents.ErrNotFound) {
		return models.NewMealPlan(userID, date), nil
	}
	if err != nil {
		return models.MealPlan{}, models.Persistence("load plan", err)
	}

	var plan models.MealPlan
	if err := snap.Decode(&plan); err != nil {
		return models.MealPlan{}, models.Persistence("decode plan", err)
	}
	return normalizePlan(plan, userID, date), nil
}

// Add appends entry to the plan of (userID, date). An entry id already in the
// plan is ignored.
func (s *Service) Add(ctx context.Context, userID, date string, entry models.PlannedEntry) (models.MealPlan, error) {
	date, err := validateKey(userID, date)
	if err != nil {
		return models.MealPlan{}, err
	}
	if err := models.MealEntry(entry).Validate(); err != nil {
		return models.MealPlan{}, err
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = s.now().UTC()
	}

	plan, err := documents.Mutate(ctx, s.store, documents.PlanPath(userID, date), func(plan *models.MealPlan, exists bool) (bool, error) {
		if !exists {
			*plan = models.NewMealPlan(userID, date)
		}
		if _, dup := plan.Find(entry.ID); dup {
			return false, nil
		}
		plan.Entries = append(plan.Entries, entry)
		return true, nil
	})
	if err != nil {
		s.logger.Error("failed to add planned meal", zap.String("user_id", userID), zap.String("date", date), zap.Error(err))
		return models.MealPlan{}, models.Persistence("add planned meal", err)
	}
	return normalizePlan(plan, userID, date), nil
}

// Remove drops entryID from the plan. A missing entry is a no-op; a missing
// plan is ErrNotFound.
func (s *Service) Remove(ctx context.Context, userID, date, entryID string) (models.MealPlan, error) {
	date, err := validateKey(userID, date)
	if err != nil {
		return models.MealPlan{}, err
	}
	if strings.TrimSpace(entryID) == "" {
		return models.MealPlan{}, models.Validationf("planned entry id must not be empty")
	}

	missing := false
	plan, err := documents.Mutate(ctx, s.store, documents.PlanPath(userID, date), func(plan *models.MealPlan, exists bool) (bool, error) {
		missing = !exists
		if missing {
			return false, nil
		}
		return plan.Remove(entryID), nil
	})
	if err != nil {
		s.logger.Error("failed to remove planned meal", zap.String("user_id", userID), zap.String("date", date), zap.Error(err))
		return models.MealPlan{}, models.Persistence("remove planned meal", err)
	}
	if missing {
		return models.MealPlan{}, models.NotFoundf("no plan for user %s on %s", userID, date)
	}
	return normalizePlan(plan, userID, date), nil
}

// Consume copies a planned entry into the ledger of consumeDate, which
// defaults to the planned date. The plan itself is left untouched.
func (s *Service) Consume(ctx context.Context, userID, date, entryID, consumeDate string) (models.DailyLedger, error) {
	plan, err := s.List(ctx, userID, date)
	if err != nil {
		return models.DailyLedger{}, err
	}
	planned, ok := plan.Find(entryID)
	if !ok {
		return models.DailyLedger{}, models.NotFoundf("planned entry %s on %s", entryID, plan.Date)
	}
	if strings.TrimSpace(consumeDate) == "" {
		consumeDate = plan.Date
	}

	ledger, err := s.meals.AddMealToDay(ctx, userID, consumeDate, planned.ToMealEntry(s.now()))
	if err != nil {
		return models.DailyLedger{}, err
	}
	s.logger.Info("planned meal consumed",
		zap.String("user_id", userID),
		zap.String("planned_date", plan.Date),
		zap.String("consumed_date", ledger.Date),
		zap.String("entry_id", entryID))
	return ledger, nil
}

// Range returns the non-empty plans between from and to inclusive, by date.
func (s *Service) Range(ctx context.Context, userID, from, to string) ([]models.MealPlan, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return nil, err
	}
	fromDate, err := models.ParseDate(from)
	if err != nil {
		return nil, err
	}
	toDate, err := models.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if toDate.Before(fromDate) {
		return nil, models.Validationf("range end %s is before start %s", to, from)
	}
	if days := int(toDate.Sub(fromDate).Hours()/24) + 1; days > models.MaxSeriesDays {
		return nil, models.Validationf("range spans %d days, at most %d allowed", days, models.MaxSeriesDays)
	}

	snaps, err := s.store.List(ctx, documents.PlanCollection(userID), models.FormatDate(fromDate), models.FormatDate(toDate))
	if err != nil {
		return nil, models.Persistence("list plans", err)
	}

	plans := make([]models.MealPlan, 0, len(snaps))
	for _, snap := range snaps {
		var plan models.MealPlan
		if err := snap.Decode(&plan); err != nil {
			return nil, models.Persistence("decode plan", err)
		}
		plan = normalizePlan(plan, userID, snap.Key)
		if len(plan.Entries) == 0 {
			continue
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func validateKey(userID, date string) (string, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return "", err
	}
	return models.NormalizeDate(date)
}

func normalizePlan(plan models.MealPlan, userID, date string) models.MealPlan {
	if plan.UserID == "" {
		plan.UserID = userID
	}
	if plan.Date == "" {
		plan.Date = date
	}
	if plan.Entries == nil {
		plan.Entries = []models.PlannedEntry{}
	}
	return plan
}
