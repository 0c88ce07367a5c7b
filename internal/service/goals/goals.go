package goals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/repository/documents"
)

// Service manages user profiles and their daily goal targets.
type Service struct {
	store       documents.Store
	defaultGoal models.GoalTarget
	logger      *zap.Logger
	now         func() time.Time
}

// NewService builds the goal store. defaultGoal is assigned at registration
// and returned for users without a profile.
func NewService(store documents.Store, defaultGoal models.GoalTarget, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultGoal == (models.GoalTarget{}) {
		defaultGoal = models.DefaultGoal()
	}
	return &Service{
		store:       store,
		defaultGoal: defaultGoal,
		logger:      logger,
		now:         time.Now,
	}
}

// Register creates the users/{userId} document. A zero goal is replaced by the
// default goal. A phone number is indexed for the chat channel.
func (s *Service) Register(ctx context.Context, profile models.UserProfile) (models.UserProfile, error) {
	profile.UserID = strings.TrimSpace(profile.UserID)
	profile.Phone = normalizePhone(profile.Phone)
	if profile.Goals == (models.GoalTarget{}) {
		profile.Goals = s.defaultGoal
	}
	if err := profile.Validate(); err != nil {
		return models.UserProfile{}, err
	}
	if strings.Contains(profile.Phone, "/") {
		return models.UserProfile{}, models.Validationf("phone %q is not a phone number", profile.Phone)
	}
	profile.CreatedAt = s.now().UTC()

	err := s.store.CompareAndSet(ctx, documents.UserPath(profile.UserID), 0, profile)
	if errors.Is(err, documents.ErrConflict) {
		return models.UserProfile{}, fmt.Errorf("%w: user %s already registered", models.ErrConflict, profile.UserID)
	}
	if err != nil {
		return models.UserProfile{}, models.Persistence("create user", err)
	}

	if profile.Phone != "" {
		link := models.PhoneLink{Phone: profile.Phone, UserID: profile.UserID}
		if err := s.store.Set(ctx, documents.PhonePath(profile.Phone), link); err != nil {
			return models.UserProfile{}, models.Persistence("index phone", err)
		}
	}

	s.logger.Info("user registered", zap.String("user_id", profile.UserID), zap.Bool("has_phone", profile.Phone != ""))
	return profile, nil
}

// Profile returns the stored profile of userID.
func (s *Service) Profile(ctx context.Context, userID string) (models.UserProfile, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.UserProfile{}, err
	}

	snap, err := s.store.Get(ctx, documents.UserPath(userID))
	if errors.Is(err, documents.ErrNotFound) {
		return models.UserProfile{}, models.NotFoundf("user %s", userID)
	}
	if err != nil {
		return models.UserProfile{}, models.Persistence("load user", err)
	}

	var profile models.UserProfile
	if err := snap.Decode(&profile); err != nil {
		return models.UserProfile{}, models.Persistence("decode user", err)
	}
	return profile, nil
}

// Goal returns the daily target of userID. Unknown users get the default goal.
func (s *Service) Goal(ctx context.Context, userID string) (models.GoalTarget, error) {
	profile, err := s.Profile(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return s.defaultGoal, nil
	}
	if err != nil {
		return models.GoalTarget{}, err
	}
	return profile.Goals, nil
}

// SetGoal replaces the daily target of an existing user.
func (s *Service) SetGoal(ctx context.Context, userID string, goal models.GoalTarget) (models.GoalTarget, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.GoalTarget{}, err
	}
	if err := goal.Validate(); err != nil {
		return models.GoalTarget{}, err
	}

	missing := false
	profile, err := documents.Mutate(ctx, s.store, documents.UserPath(userID), func(profile *models.UserProfile, exists bool) (bool, error) {
		missing = !exists
		if missing {
			return false, nil
		}
		profile.Goals = goal
		return true, nil
	})
	if err != nil {
		return models.GoalTarget{}, models.Persistence("update goal", err)
	}
	if missing {
		return models.GoalTarget{}, models.NotFoundf("user %s", userID)
	}

	s.logger.Info("goal updated", zap.String("user_id", userID), zap.Float64("calories", goal.Calories))
	return profile.Goals, nil
}

// AdjustGoal atomically moves one goal field by delta and returns the new goal.
// A field pushed to zero or below disables its progress percentage.
func (s *Service) AdjustGoal(ctx context.Context, userID, field string, delta float64) (models.GoalTarget, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return models.GoalTarget{}, err
	}
	field = strings.ToLower(strings.TrimSpace(field))
	if !models.IsGoalField(field) {
		return models.GoalTarget{}, models.Validationf("unknown goal field %q", field)
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return models.GoalTarget{}, models.Validationf("delta must be a finite number")
	}

	err := s.store.UpdateField(ctx, documents.UserPath(userID), "goals."+field, delta)
	if errors.Is(err, documents.ErrNotFound) {
		return models.GoalTarget{}, models.NotFoundf("user %s", userID)
	}
	if err != nil {
		return models.GoalTarget{}, models.Persistence("adjust goal", err)
	}

	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return models.GoalTarget{}, err
	}
	return profile.Goals, nil
}

// UserIDForPhone resolves a chat sender to a registered user.
func (s *Service) UserIDForPhone(ctx context.Context, phone string) (string, error) {
	phone = normalizePhone(phone)
	if phone == "" || strings.Contains(phone, "/") {
		return "", models.Validationf("phone %q is not a phone number", phone)
	}

	snap, err := s.store.Get(ctx, documents.PhonePath(phone))
	if errors.Is(err, documents.ErrNotFound) {
		return "", models.NotFoundf("phone %s", phone)
	}
	if err != nil {
		return "", models.Persistence("load phone", err)
	}

	var link models.PhoneLink
	if err := snap.Decode(&link); err != nil {
		return "", models.Persistence("decode phone", err)
	}
	return link.UserID, nil
}

// ListProfiles returns every registered profile ordered by user id.
func (s *Service) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	snaps, err := s.store.List(ctx, "users", "", "")
	if err != nil {
		return nil, models.Persistence("list users", err)
	}

	profiles := make([]models.UserProfile, 0, len(snaps))
	for _, snap := range snaps {
		var profile models.UserProfile
		if err := snap.Decode(&profile); err != nil {
			s.logger.Warn("skip undecodable user", zap.String("path", snap.Path), zap.Error(err))
			continue
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	return strings.ReplaceAll(phone, " ", "")
}
