package params_test

import (
	"testing"

	"github.com/mkszuba/flashrom/internal/params"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]string
		wantErr bool
	}{
		{"", map[string]string{}, false},
		{"bus=8", map[string]string{"bus": "8"}, false},
		{"bus=8,voltage=1800", map[string]string{"bus": "8", "voltage": "1800"}, false},
		{"bus", nil, true},
		{"=8", nil, true},
		{"bus=8,bus=9", nil, true},
	}
	for _, tc := range tests {
		got, err := params.Parse(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if len(got) != len(tc.want) {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for k, v := range tc.want {
			if got[k] != v {
				t.Errorf("Parse(%q)[%q] = %q, want %q", tc.in, k, got[k], v)
			}
		}
	}
}

func TestBus(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"valid", "bus=8", 8, false},
		{"zero", "bus=0", 0, false},
		{"max", "bus=255", 255, false},
		{"missing", "", 0, true},
		{"negative", "bus=-1", 0, true},
		{"out of range", "bus=256", 0, true},
		{"garbage suffix", "bus=8x", 0, true},
		{"not a number", "bus=eight", 0, true},
		{"empty value", "bus=", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := params.Parse(tc.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.in, err)
			}
			got, err := params.Bus(p)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Bus(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if err == nil && got != tc.want {
				t.Errorf("Bus(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}
