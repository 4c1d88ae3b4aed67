package query

import (
	"strings"
	"testing"
	"time"

	"mercator-hq/covenant/pkg/evidence"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   *evidence.Query
		wantErr string
	}{
		{name: "empty query", query: &evidence.Query{}},
		{name: "full query", query: &evidence.Query{SchemaID: "s", Result: evidence.ResultError, Limit: 10, SortOrder: "asc", StartTime: &earlier, EndTime: &now}},
		{name: "negative limit", query: &evidence.Query{Limit: -1}, wantErr: "limit must be >= 0"},
		{name: "limit too large", query: &evidence.Query{Limit: MaxLimit + 1}, wantErr: "limit must be <="},
		{name: "negative offset", query: &evidence.Query{Offset: -5}, wantErr: "offset must be >= 0"},
		{name: "bad sort order", query: &evidence.Query{SortOrder: "up"}, wantErr: "invalid sort order"},
		{name: "inverted range", query: &evidence.Query{StartTime: &now, EndTime: &earlier}, wantErr: "start_time must be before end_time"},
		{name: "bad result", query: &evidence.Query{Result: "blocked"}, wantErr: "invalid result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &evidence.Query{}
	ApplyDefaults(q)
	if q.Limit != DefaultLimit || q.SortOrder != "desc" {
		t.Errorf("ApplyDefaults() = limit %d, order %q", q.Limit, q.SortOrder)
	}

	q = &evidence.Query{Limit: 5, SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 5 || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults() overwrote set fields: %+v", q)
	}
}

func TestParseTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-03-01T08:30:00Z", want: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
		{in: "2026-03-01", want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "24h", want: now.Add(-24 * time.Hour)},
		{in: "7d", want: now.AddDate(0, 0, -7)},
		{in: "", wantErr: true},
		{in: "yesterday", wantErr: true},
		{in: "-3h", wantErr: true},
		{in: "3.5d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
