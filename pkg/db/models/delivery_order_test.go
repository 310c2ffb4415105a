package models

import (
	"testing"

	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

func TestFormatDONumber(t *testing.T) {
	cases := []struct {
		kind enums.OrderType
		seq  int
		year int
		want string
	}{
		{enums.OrderTypeDO, 42, 2025, "0042/25"},
		{enums.OrderTypeSDO, 42, 2025, "SDO-0042/25"},
		{enums.OrderTypeDO, 12345, 2100, "12345/00"},
	}
	for _, tc := range cases {
		if got := FormatDONumber(tc.kind, tc.seq, tc.year); got != tc.want {
			t.Fatalf("FormatDONumber(%s, %d, %d) = %q, want %q", tc.kind, tc.seq, tc.year, got, tc.want)
		}
	}
	if FormatDONumber(enums.OrderTypeDO, 1, 2025) == FormatDONumber(enums.OrderTypeSDO, 1, 2025) {
		t.Fatal("DO and SDO numbers must not collide")
	}
}
