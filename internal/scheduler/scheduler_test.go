package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noop(context.Context) error { return nil }

func TestNextRun(t *testing.T) {
	s, err := New([]string{"16:00", "04:30"}, "America/Detroit", noop, zap.NewNop())
	require.NoError(t, err)
	detroit, _ := time.LoadLocation("America/Detroit")

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"早于当天首个时刻", time.Date(2024, 10, 2, 1, 0, 0, 0, detroit), time.Date(2024, 10, 2, 4, 30, 0, 0, detroit)},
		{"两个时刻之间", time.Date(2024, 10, 2, 5, 0, 0, 0, detroit), time.Date(2024, 10, 2, 16, 0, 0, 0, detroit)},
		{"恰好等于时刻时取下一个", time.Date(2024, 10, 2, 16, 0, 0, 0, detroit), time.Date(2024, 10, 3, 4, 30, 0, 0, detroit)},
		{"UTC 输入按本地时区计算", time.Date(2024, 10, 2, 21, 0, 0, 0, time.UTC), time.Date(2024, 10, 3, 4, 30, 0, 0, detroit)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.NextRun(tt.now)
			assert.True(t, got.Equal(tt.want), "期望 %v，实际 %v", tt.want, got)
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(nil, "UTC", noop, zap.NewNop())
	assert.Error(t, err)

	_, err = New([]string{"25:00"}, "UTC", noop, zap.NewNop())
	assert.Error(t, err)

	_, err = New([]string{"04:00"}, "Mars/Olympus", noop, zap.NewNop())
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, err := New([]string{"04:00"}, "UTC", noop, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}

func TestToCronSpec(t *testing.T) {
	spec, err := toCronSpec(" 04:30 ")
	require.NoError(t, err)
	assert.Equal(t, "30 4 * * *", spec)

	spec, err = toCronSpec("16:05")
	require.NoError(t, err)
	assert.Equal(t, "5 16 * * *", spec)

	_, err = toCronSpec("4pm")
	assert.Error(t, err)
}

func TestNew_SchedulesEveryTime(t *testing.T) {
	s, err := New([]string{"16:00", "04:30", "12:15"}, "", noop, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"0 16 * * *", "30 4 * * *", "15 12 * * *"}, s.specs)
	assert.Equal(t, time.UTC, s.loc)

	now := time.Date(2024, 10, 2, 5, 0, 0, 0, time.UTC)
	assert.True(t, s.NextRun(now).Equal(time.Date(2024, 10, 2, 12, 15, 0, 0, time.UTC)))
}
