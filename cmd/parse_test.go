package cmd

import (
	"reflect"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"24h", 24 * time.Hour, false},
		{"1.5s", 1500 * time.Millisecond, false},
		{"3d", 72 * time.Hour, false},
		{" 0d ", 0, false},
		{"xd", 0, true},
		{"-1h", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,,c ")
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := splitList(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := parseTimestamp("1700000000")
	if err != nil || got != 1700000000 {
		t.Errorf("expected 1700000000, got %d (%v)", got, err)
	}
	got, err = parseTimestamp("2023-11-14T22:13:20Z")
	if err != nil || got != 1700000000 {
		t.Errorf("expected 1700000000 from RFC 3339, got %d (%v)", got, err)
	}
	if _, err := parseTimestamp("tomorrow"); err == nil {
		t.Error("expected error for non-timestamp")
	}
}
