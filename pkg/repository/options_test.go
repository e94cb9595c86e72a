package repository

import "testing"

func TestListOptionsNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         ListOptions
		wantOffset int
		wantLimit  int
	}{
		{"zero value gets defaults", ListOptions{}, 0, DefaultLimit},
		{"negative offset clamped", ListOptions{Offset: -5, Limit: 10}, 0, 10},
		{"oversized limit capped", ListOptions{Limit: 10000}, 0, MaxLimit},
		{"in-range untouched", ListOptions{Offset: 20, Limit: 30}, 20, 30},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.in.Normalize()
			if got.Offset != tt.wantOffset || got.Limit != tt.wantLimit {
				t.Fatalf("Normalize() = {Offset:%d Limit:%d}, want {Offset:%d Limit:%d}",
					got.Offset, got.Limit, tt.wantOffset, tt.wantLimit)
			}
		})
	}
}

func TestListOptionsDirection(t *testing.T) {
	t.Parallel()

	if got := (ListOptions{}).Direction(); got != "ASC" {
		t.Fatalf("Direction() = %q, want ASC", got)
	}
	if got := (ListOptions{OrderDesc: true}).Direction(); got != "DESC" {
		t.Fatalf("Direction() = %q, want DESC", got)
	}
}
