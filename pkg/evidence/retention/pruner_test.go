package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/storage"
	"mercator-hq/covenant/pkg/telemetry/logging"
	"mercator-hq/covenant/pkg/telemetry/metrics"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

// seedAges stores one record per age in days.
func seedAges(t *testing.T, store evidence.Storage, ages ...int) {
	t.Helper()
	for i, days := range ages {
		err := store.Store(context.Background(), &evidence.Record{
			ID:           fmt.Sprintf("rec-%02d", i),
			SchemaID:     "payment-saga",
			ConstraintID: "saga.total-positive",
			Result:       evidence.ResultPass,
			RecordedAt:   now.AddDate(0, 0, -days),
		})
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		ages        []int
		wantDeleted int64
		wantLeft    int
	}{
		{name: "by age", cfg: Config{RetentionDays: 30}, ages: []int{1, 10, 31, 60, 90}, wantDeleted: 3, wantLeft: 2},
		{name: "retention disabled", cfg: Config{}, ages: []int{1, 400}, wantDeleted: 0, wantLeft: 2},
		{name: "by count", cfg: Config{MaxRecords: 2}, ages: []int{1, 2, 3, 4, 5}, wantDeleted: 3, wantLeft: 2},
		{name: "age then count", cfg: Config{RetentionDays: 30, MaxRecords: 1}, ages: []int{1, 5, 40}, wantDeleted: 2, wantLeft: 1},
		{name: "within limits", cfg: Config{RetentionDays: 30, MaxRecords: 10}, ages: []int{1, 2}, wantDeleted: 0, wantLeft: 2},
		{name: "empty storage", cfg: Config{RetentionDays: 1, MaxRecords: 1}, wantDeleted: 0, wantLeft: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			seedAges(t, store, tt.ages...)

			cfg := tt.cfg
			pruner := NewPruner(store, &cfg, logging.Discard(), WithClock(clock))
			deleted, err := pruner.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("Prune() deleted %d, want %d", deleted, tt.wantDeleted)
			}
			if store.Size() != tt.wantLeft {
				t.Errorf("%d records left, want %d", store.Size(), tt.wantLeft)
			}
		})
	}
}

func TestPruner_CountKeepsNewest(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedAges(t, store, 5, 1, 3, 2)

	pruner := NewPruner(store, &Config{MaxRecords: 2}, logging.Discard(), WithClock(clock))
	if _, err := pruner.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	for _, id := range []string{"rec-01", "rec-03"} {
		if _, err := store.Get(context.Background(), id); err != nil {
			t.Errorf("Expected newest record %s to survive: %v", id, err)
		}
	}
}

func TestPruner_Archive(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedAges(t, store, 1, 40, 50)
	dir := filepath.Join(t.TempDir(), "archive")

	pruner := NewPruner(store, &Config{RetentionDays: 30, ArchivePath: dir}, logging.Discard(), WithClock(clock))
	if _, err := pruner.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "evidence-age-*.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("archive files = %v, %v; want one", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var archived []evidence.Record
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not a JSON array: %v", err)
	}
	if len(archived) != 2 {
		t.Errorf("archived %d records, want 2", len(archived))
	}
}

func TestPruner_NoArchiveWhenNothingExpired(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedAges(t, store, 1)
	dir := filepath.Join(t.TempDir(), "archive")

	pruner := NewPruner(store, &Config{RetentionDays: 30, ArchivePath: dir}, logging.Discard(), WithClock(clock))
	if _, err := pruner.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected no archive directory when nothing was pruned")
	}
}

func TestPruner_Metrics(t *testing.T) {
	store := storage.NewMemoryStorage()
	seedAges(t, store, 40, 50)

	enabled := true
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: &enabled, Namespace: "test"}, registry)
	pruner := NewPruner(store, &Config{RetentionDays: 30}, logging.Discard(), WithClock(clock), WithMetrics(collector))

	if _, err := pruner.Prune(context.Background()); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	want := `
		# HELP test_evidence_records_pruned_total Total number of evidence records removed by retention
		# TYPE test_evidence_records_pruned_total counter
		test_evidence_records_pruned_total 2
	`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(want), "test_evidence_records_pruned_total"); err != nil {
		t.Error(err)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(&config.RetentionConfig{Days: 7, PruneSchedule: "@daily", MaxRecords: 5, ArchivePath: "a"})
	if cfg.RetentionDays != 7 || cfg.PruneSchedule != "@daily" || cfg.MaxRecords != 5 || cfg.ArchivePath != "a" {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}
}
