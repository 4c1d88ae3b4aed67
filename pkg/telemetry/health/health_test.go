package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, 5 * time.Second},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
			if len(checker.ListChecks()) != 0 {
				t.Error("expected no checks")
			}
		})
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				CheckConstraints: func(context.Context) error { return nil },
				CheckEvidence:    func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "evidence failing",
			checks: map[string]CheckFunc{
				CheckConstraints: func(context.Context) error { return nil },
				CheckEvidence:    func(context.Context) error { return errors.New("database is locked") },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{CheckEvidence},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				CheckConstraints: func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{CheckConstraints},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(20 * time.Millisecond)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status.Status, tt.wantStatus)
			}

			var failed []string
			for _, name := range checker.ListChecks() {
				if status.Checks[name].Status == StatusUnhealthy {
					failed = append(failed, name)
				}
			}
			if !reflect.DeepEqual(failed, tt.wantFailed) {
				t.Errorf("failed checks = %v, want %v", failed, tt.wantFailed)
			}
		})
	}
}

func TestUnregisterCheck(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck(CheckEvidence, func(context.Context) error { return errors.New("down") })
	checker.UnregisterCheck(CheckEvidence)

	if status := checker.CheckReadiness(context.Background()); !status.Ready() {
		t.Errorf("expected ready after unregistering, got %q", status.Status)
	}
}

func TestMount(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck(CheckEvidence, func(context.Context) error { return errors.New("database is locked") })

	mux := http.NewServeMux()
	Mount(mux, checker, &config.HealthConfig{LivenessPath: "/livez"}, "1.2.0", "abc123", "2026-03-01")

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/livez", http.StatusOK},
		{http.MethodHead, "/livez", http.StatusOK},
		{http.MethodGet, config.DefaultReadinessPath, http.StatusServiceUnavailable},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/version", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, config.DefaultReadinessPath, nil))
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode readiness body: %v", err)
	}
	if got := status.Checks[CheckEvidence].Message; got != "database is locked" {
		t.Errorf("evidence message = %q", got)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode version body: %v", err)
	}
	if info.Version != "1.2.0" || info.GoVersion == "" {
		t.Errorf("unexpected version info %+v", info)
	}
}
