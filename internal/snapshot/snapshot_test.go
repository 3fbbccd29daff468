package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(now time.Time) *entity.Snapshot {
	periods := map[period.Key]entity.PeriodReport{}
	for _, w := range period.Windows(now) {
		periods[w.Key] = entity.PeriodReport{Range: w.Current, KPIs: entity.KPIs{NewSignups: 3}}
	}
	return &entity.Snapshot{
		GeneratedAt: now,
		Sources:     []string{entity.OriginMemberPress, entity.OriginGA4},
		GlobalState: entity.GlobalSubscriptionState{TotalActive: 7, TotalMRR: decimal.RequireFromString("139.93")},
		TrialROI: entity.TrialROIReport{
			AdSpend: entity.DegradedAdSpend(entity.AdSpendNone, "no ads API credentials configured", nil),
			Status:  entity.ROIUnknown,
		},
		Periods: periods,
	}
}

func TestWriteRead(t *testing.T) {
	now := time.Date(2026, time.October, 19, 6, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "public", "data.json")

	data, err := Encode(testSnapshot(now))
	require.NoError(t, err)
	require.NoError(t, Write(path, data))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19T06:00:00.000Z", got.Meta.GeneratedAt)
	assert.Equal(t, 139.93, got.GlobalState.TotalMRR)
	assert.Len(t, got.Periods, 4)
	assert.Equal(t, 3, got.Periods[period.Key30d].KPIs.NewSignups)
	assert.Equal(t, "unknown", got.TrialROI.Status)
	assert.Nil(t, got.TrialROI.ROI)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWrite_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	require.NoError(t, Write(path, []byte(`{"old":true}`)))
	require.NoError(t, Write(path, []byte(`{"new":true}`)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"new":true}`, string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWrite_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, Write(path, []byte(`{"old":true}`)))

	// A directory cannot be replaced by a regular file.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o755))
	require.Error(t, Write(blocked, []byte(`{}`)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"old":true}`, string(b))
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
