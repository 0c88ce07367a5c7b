package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/domain/models"
	repo "github.com/Meedux/ai-meal/internal/repository/sheets"
	"github.com/Meedux/ai-meal/internal/service/nutrition"
)

const (
	// DailyTotalsRange receives one row per exported day:
	// date, userId, kcal, protein, carbs, fat, meals.
	DailyTotalsRange = "DailyTotals!A:G"
	exportedKeyRange = "DailyTotals!A:B"
)

// ErrExportDisabled is returned by ExportDay when no spreadsheet is configured.
var ErrExportDisabled = errors.New("daily totals export is not configured")

// Ledgers is the read side of the nutrition aggregator used by digests.
type Ledgers interface {
	DayView(ctx context.Context, userID, date string) (nutrition.DayView, error)
	ComputeWeeklySeries(ctx context.Context, userID, endDate string, days int) (models.WeeklySeries, error)
}

// Service renders chat digests and exports daily totals.
type Service struct {
	ledgers Ledgers
	sheet   repo.Repository
	logger  *zap.Logger
}

// NewService wires a new reporting service instance. sheet may be nil.
func NewService(ledgers Ledgers, sheet repo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledgers: ledgers, sheet: sheet, logger: logger}
}

// ExportEnabled reports whether ExportDay can write.
func (s *Service) ExportEnabled() bool {
	return s.sheet != nil
}

// DailyDigest summarizes one day against the user's goal.
func (s *Service) DailyDigest(ctx context.Context, userID, date string) (string, error) {
	view, err := s.ledgers.DayView(ctx, userID, date)
	if err != nil {
		return "", fmt.Errorf("load day view: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily summary %s\n", view.Ledger.Date)
	writeProgress(&b, "Calories", "kcal", view.Progress.Calories)
	writeProgress(&b, "Protein", "g", view.Progress.Protein)
	writeProgress(&b, "Carbs", "g", view.Progress.Carbs)
	writeProgress(&b, "Fat", "g", view.Progress.Fat)
	fmt.Fprintf(&b, "Split: protein %d%% | carbs %d%% | fat %d%%\n",
		view.Distribution.Protein, view.Distribution.Carbs, view.Distribution.Fat)
	fmt.Fprintf(&b, "Meals logged: %d", len(view.Ledger.Meals))
	return b.String(), nil
}

// WeeklyDigest summarizes the seven days ending at endDate.
func (s *Service) WeeklyDigest(ctx context.Context, userID, endDate string) (string, error) {
	series, err := s.ledgers.ComputeWeeklySeries(ctx, userID, endDate, nutrition.DefaultSeriesDays)
	if err != nil {
		return "", fmt.Errorf("load weekly series: %w", err)
	}
	summary := series.Summarize()

	if summary.DaysLogged == 0 {
		return fmt.Sprintf("Week %s to %s: no meals logged yet.", summary.From, summary.To), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Week %s to %s: %d of %d days logged\n", summary.From, summary.To, summary.DaysLogged, series.Len())
	fmt.Fprintf(&b, "Daily average: %s kcal, protein %s g, carbs %s g, fat %s g\n",
		formatAmount(summary.Average.Calories), formatAmount(summary.Average.Protein),
		formatAmount(summary.Average.Carbs), formatAmount(summary.Average.Fat))
	fmt.Fprintf(&b, "Week total: %s kcal", formatAmount(summary.Total.Calories))
	return b.String(), nil
}

// ExportDay appends the totals of (userID, date) to the daily totals sheet.
// A day already exported for the user is not appended again; the boolean
// reports whether a row was written.
func (s *Service) ExportDay(ctx context.Context, userID, date string) (bool, error) {
	if s.sheet == nil {
		return false, ErrExportDisabled
	}

	view, err := s.ledgers.DayView(ctx, userID, date)
	if err != nil {
		return false, fmt.Errorf("load day view: %w", err)
	}
	ledger := view.Ledger

	rows, err := s.sheet.ReadRange(ctx, exportedKeyRange)
	if err != nil {
		return false, fmt.Errorf("load exported days: %w", err)
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if fmt.Sprint(row[0]) == ledger.Date && fmt.Sprint(row[1]) == ledger.UserID {
			s.logger.Debug("day already exported", zap.String("user_id", userID), zap.String("date", ledger.Date))
			return false, nil
		}
	}

	row := []interface{}{
		ledger.Date,
		ledger.UserID,
		roundAmount(ledger.Total.Calories),
		roundAmount(ledger.Total.Protein),
		roundAmount(ledger.Total.Carbs),
		roundAmount(ledger.Total.Fat),
		len(ledger.Meals),
	}
	if err := s.sheet.AppendRow(ctx, DailyTotalsRange, row); err != nil {
		return false, fmt.Errorf("append daily totals: %w", err)
	}

	s.logger.Info("daily totals exported", zap.String("user_id", userID), zap.String("date", ledger.Date))
	return true, nil
}

func writeProgress(b *strings.Builder, label, unit string, p models.FieldProgress) {
	if p.Goal <= 0 {
		fmt.Fprintf(b, "%s: %s %s\n", label, formatAmount(p.Current), unit)
		return
	}
	fmt.Fprintf(b, "%s: %s / %s %s (%d%%)\n", label, formatAmount(p.Current), formatAmount(p.Goal), unit, p.Percentage)
}

func roundAmount(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(roundAmount(v), 'f', -1, 64)
}
