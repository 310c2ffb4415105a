package fuel

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fleetops-backend/pkg/db/models"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestBalanceSumsEveryCheckpointByMagnitude(t *testing.T) {
	record := &models.FuelRecord{
		TotalLiters: Liters(d(1000)),
		ExtraLiters: Liters(d(50)),
		Checkpoints: models.Checkpoints{
			MbeyaGoing:   d(200),
			DarYard:      d(-30),
			ZambiaReturn: d(-70),
			TangaReturn:  d(10),
		},
	}

	assert.True(t, Balance(record).Equal(d(740)), "got %s", Balance(record))
	assert.True(t, CheckpointTotal(record.Checkpoints).Equal(d(310)))
}

func TestBalanceTreatsMissingVolumesAsZero(t *testing.T) {
	record := &models.FuelRecord{
		TotalLiters: Missing(),
		ExtraLiters: Liters(d(60)),
		Checkpoints: models.Checkpoints{MoroGoing: d(100)},
	}
	assert.True(t, Balance(record).Equal(d(-40)))

	record.ExtraLiters = Missing()
	assert.True(t, Balance(record).Equal(d(-100)))
}

func TestRecomputeIsConvergent(t *testing.T) {
	record := &models.FuelRecord{
		TotalLiters: Liters(d(1000)),
		ExtraLiters: Liters(d(50)),
		Checkpoints: models.Checkpoints{MbeyaGoing: d(200)},
	}

	require.True(t, Recompute(record))
	assert.True(t, record.Balance.Equal(d(850)))
	assert.False(t, Recompute(record), "second recompute should be a no-op")
	assert.True(t, record.Balance.Equal(d(850)))
}

func TestLockState(t *testing.T) {
	cases := []struct {
		name   string
		total  decimal.NullDecimal
		extra  decimal.NullDecimal
		reason enums.PendingConfigReason
		locked bool
	}{
		{"both present", Liters(d(1)), Liters(d(0)), enums.PendingConfigNone, false},
		{"missing total", Missing(), Liters(d(0)), enums.PendingConfigMissingTotalLiters, true},
		{"missing extra", Liters(d(1)), Missing(), enums.PendingConfigMissingExtraFuel, true},
		{"missing both", Missing(), Missing(), enums.PendingConfigBoth, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := &models.FuelRecord{TotalLiters: tc.total, ExtraLiters: tc.extra, IsLocked: true}
			wasLocked := ApplyLockState(record)
			assert.True(t, wasLocked)
			assert.Equal(t, tc.reason, record.PendingConfigReason)
			assert.Equal(t, tc.locked, record.IsLocked)
		})
	}
}

func TestClearReturnLegZeroesSixReturnCheckpoints(t *testing.T) {
	cp := models.Checkpoints{
		MbeyaGoing:    d(200),
		ZambiaReturn:  d(1),
		TundumaReturn: d(2),
		MbeyaReturn:   d(3),
		MoroReturn:    d(4),
		DarReturn:     d(5),
		TangaReturn:   d(6),
	}
	cp.ClearReturnLeg()
	for i, v := range cp.ReturnLeg() {
		assert.True(t, v.IsZero(), "return checkpoint %d not cleared", i)
	}
	assert.True(t, cp.MbeyaGoing.Equal(d(200)))
	assert.Len(t, cp.All(), 15)
}
