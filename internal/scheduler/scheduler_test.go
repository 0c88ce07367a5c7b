package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Meedux/ai-meal/internal/config"
	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/scheduler"
	"github.com/Meedux/ai-meal/internal/service/reporting"
)

type staticProfiles []models.UserProfile

func (p staticProfiles) ListProfiles(context.Context) ([]models.UserProfile, error) {
	return p, nil
}

type fakeReporter struct {
	exportErr map[string]error
	exported  []string
}

func (f *fakeReporter) ExportDay(_ context.Context, userID, _ string) (bool, error) {
	if err := f.exportErr[userID]; err != nil {
		return false, err
	}
	f.exported = append(f.exported, userID)
	return true, nil
}

func (f *fakeReporter) DailyDigest(_ context.Context, userID, date string) (string, error) {
	return "digest " + userID + " " + date, nil
}

type fakeMessenger struct {
	sent []models.OutboundMessageRequest
	fail string
}

func (f *fakeMessenger) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	if req.To == f.fail {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, req)
	return nil
}

var reportingCfg = config.ReportingConfig{CronSchedule: "0 21 * * *", Timezone: "UTC"}

func TestRunDigestContinuesAfterFailures(t *testing.T) {
	t.Parallel()

	profiles := staticProfiles{
		{UserID: "a", Phone: "111"},
		{UserID: "b", Phone: "222"},
		{UserID: "c"},
	}
	reporter := &fakeReporter{exportErr: map[string]error{"a": errors.New("sheet quota")}}
	messenger := &fakeMessenger{fail: "222"}

	stats, err := scheduler.NewScheduler(reportingCfg, profiles, reporter, messenger, nil).RunDigest(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Users != 3 || stats.Exported != 2 || stats.Sent != 1 || stats.Failures != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(messenger.sent) != 1 || messenger.sent[0].To != "111" {
		t.Fatalf("unexpected messages %+v", messenger.sent)
	}
}

func TestRunDigestWithoutExportOrMessenger(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{exportErr: map[string]error{"a": reporting.ErrExportDisabled}}
	stats, err := scheduler.NewScheduler(reportingCfg, staticProfiles{{UserID: "a", Phone: "111"}}, reporter, nil, nil).RunDigest(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Failures != 0 || stats.Exported != 0 || stats.Sent != 0 {
		t.Fatalf("disabled integrations are not failures, got %+v", stats)
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := scheduler.NewScheduler(config.ReportingConfig{CronSchedule: "not a schedule", Timezone: "UTC"}, staticProfiles{}, &fakeReporter{}, nil, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatalf("expected schedule error")
	}

	valid := scheduler.NewScheduler(reportingCfg, staticProfiles{}, &fakeReporter{}, nil, nil)
	if err := valid.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	valid.Stop()
}
