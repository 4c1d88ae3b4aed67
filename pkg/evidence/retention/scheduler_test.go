package retention

import (
	"context"
	"testing"

	"mercator-hq/covenant/pkg/evidence/storage"
	"mercator-hq/covenant/pkg/telemetry/logging"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantErr     bool
		wantRunning bool
	}{
		{name: "daily", schedule: "0 3 * * *", wantRunning: true},
		{name: "descriptor", schedule: "@hourly", wantRunning: true},
		{name: "empty schedule", schedule: ""},
		{name: "invalid schedule", schedule: "every day", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := NewPruner(storage.NewMemoryStorage(), &Config{RetentionDays: 1, PruneSchedule: tt.schedule}, logging.Discard())
			err := pruner.Start(context.Background())
			defer pruner.Stop()

			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := pruner.scheduler.IsRunning(); got != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", got, tt.wantRunning)
			}
			if tt.wantRunning && pruner.NextPruning() == nil {
				t.Error("Expected a next pruning time")
			}
		})
	}
}

func TestScheduler_StopOnCancel(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{PruneSchedule: "@daily"}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := pruner.Start(ctx); err == nil {
		t.Error("Expected error starting twice")
	}

	cancel()
	pruner.Stop()
	if pruner.scheduler.IsRunning() {
		t.Error("Expected scheduler to be stopped")
	}
	if pruner.NextPruning() != nil {
		t.Error("Expected no next run after stop")
	}

	// Restart after stop.
	if err := pruner.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	pruner.Stop()
}
