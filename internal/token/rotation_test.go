package token

import (
	"testing"
	"time"
)

func TestShouldRotate(t *testing.T) {
	base := time.Unix(0, 0)

	tests := []struct {
		name      string
		issuedAt  time.Time
		expiresAt time.Time
		now       time.Time
		threshold float64
		want      bool
	}{
		{
			name:      "just issued",
			issuedAt:  base,
			expiresAt: base.Add(100 * time.Second),
			now:       base,
			threshold: 0.5,
			want:      false,
		},
		{
			name:      "under midpoint",
			issuedAt:  base,
			expiresAt: base.Add(100 * time.Second),
			now:       base.Add(49 * time.Second),
			threshold: 0.5,
			want:      false,
		},
		{
			name:      "exactly at midpoint stays put",
			issuedAt:  base,
			expiresAt: base.Add(100 * time.Second),
			now:       base.Add(50 * time.Second),
			threshold: 0.5,
			want:      false,
		},
		{
			name:      "past midpoint",
			issuedAt:  base,
			expiresAt: base.Add(100 * time.Second),
			now:       base.Add(51 * time.Second),
			threshold: 0.5,
			want:      true,
		},
		{
			name:      "almost expired",
			issuedAt:  base,
			expiresAt: base.Add(100 * time.Second),
			now:       base.Add(99 * time.Second),
			threshold: 0.5,
			want:      true,
		},
		{
			name:      "low threshold rotates early",
			issuedAt:  base,
			expiresAt: base.Add(100 * time.Second),
			now:       base.Add(30 * time.Second),
			threshold: 0.25,
			want:      true,
		},
		{
			name:      "high threshold rotates late",
			issuedAt:  base,
			expiresAt: base.Add(100 * time.Second),
			now:       base.Add(80 * time.Second),
			threshold: 0.9,
			want:      false,
		},
		{
			name:      "zero lifetime never rotates",
			issuedAt:  base,
			expiresAt: base,
			now:       base.Add(time.Second),
			threshold: 0.5,
			want:      false,
		},
		{
			name:      "inverted lifetime never rotates",
			issuedAt:  base.Add(10 * time.Second),
			expiresAt: base,
			now:       base.Add(time.Hour),
			threshold: 0.5,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldRotate(tt.issuedAt, tt.expiresAt, tt.now, tt.threshold)
			if got != tt.want {
				t.Errorf("ShouldRotate() = %v, want %v", got, tt.want)
			}
		})
	}
}
