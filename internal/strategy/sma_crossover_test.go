package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-exec/internal/logger"
	"github.com/rxtech-lab/argo-exec/internal/position"
	"github.com/rxtech-lab/argo-exec/internal/types"
	"github.com/rxtech-lab/argo-exec/internal/venue/venuetest"
	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedCloses(t *testing.T, s *SMACrossover, ctx Context, closes []float64) types.Signal {
	t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var last types.Signal

	for i, c := range closes {
		signal, err := s.ProcessBar(ctx, types.Bar{
			Symbol: "BTCUSDT",
			Time:   base.Add(time.Duration(i) * time.Minute),
			Close:  c,
		})
		require.NoError(t, err)

		last = signal
	}

	return last
}

func TestSMACrossoverWarmUpHolds(t *testing.T) {
	t.Parallel()

	s := NewSMACrossover(2, 3)
	require.NoError(t, s.Initialize(""))

	signal := feedCloses(t, s, Context{}, []float64{10, 9, 8})
	assert.Equal(t, types.SignalTypeHold, signal.Type)
	assert.Equal(t, "warming up", signal.Reason)
}

func TestSMACrossoverBuysOnUpwardCross(t *testing.T) {
	t.Parallel()

	s := NewSMACrossover(2, 3)
	require.NoError(t, s.Initialize(""))

	signal := feedCloses(t, s, Context{}, []float64{10, 9, 8, 7, 12})
	assert.Equal(t, types.SignalTypeBuy, signal.Type)
	assert.Equal(t, "BTCUSDT", signal.Symbol)
}

func TestSMACrossoverBuySuppressedWhenHolding(t *testing.T) {
	t.Parallel()

	fake := venuetest.NewFakeVenue()
	fake.SetPrice("BTCUSDT", 10)

	positions := position.NewManager(fake, time.Hour, logger.NewNopLogger())
	require.NoError(t, positions.UpdatePosition(context.Background(), "BTCUSDT", 1))

	s := NewSMACrossover(2, 3)
	require.NoError(t, s.Initialize(""))

	signal := feedCloses(t, s, Context{Positions: positions}, []float64{10, 9, 8, 7, 12})
	assert.Equal(t, types.SignalTypeHold, signal.Type)
}

func TestSMACrossoverSellsOnDownwardCrossWithPosition(t *testing.T) {
	t.Parallel()

	fake := venuetest.NewFakeVenue()
	fake.SetPrice("BTCUSDT", 10)

	positions := position.NewManager(fake, time.Hour, logger.NewNopLogger())
	require.NoError(t, positions.UpdatePosition(context.Background(), "BTCUSDT", 1))

	s := NewSMACrossover(2, 3)
	require.NoError(t, s.Initialize(""))

	signal := feedCloses(t, s, Context{Positions: positions}, []float64{10, 9, 8, 7, 12, 12, 1})
	assert.Equal(t, types.SignalTypeSell, signal.Type)
}

func TestSMACrossoverSellRequiresPosition(t *testing.T) {
	t.Parallel()

	s := NewSMACrossover(2, 3)
	require.NoError(t, s.Initialize(""))

	signal := feedCloses(t, s, Context{}, []float64{10, 9, 8, 7, 12, 12, 1})
	assert.Equal(t, types.SignalTypeHold, signal.Type)
}

func TestSMACrossoverInitialize(t *testing.T) {
	t.Parallel()

	t.Run("yaml config overrides periods", func(t *testing.T) {
		t.Parallel()

		s := NewSMACrossover(0, 0)
		require.NoError(t, s.Initialize("short_period: 3\nlong_period: 7\n"))
		assert.Equal(t, "SMA_Cross_3_7", s.Name())
	})

	t.Run("empty config uses defaults", func(t *testing.T) {
		t.Parallel()

		s := NewSMACrossover(0, 0)
		require.NoError(t, s.Initialize(""))
		assert.Equal(t, "SMA_Cross_5_20", s.Name())
	})

	t.Run("bad yaml is rejected", func(t *testing.T) {
		t.Parallel()

		s := NewSMACrossover(0, 0)
		err := s.Initialize("short_period: [oops")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
	})

	t.Run("inverted periods are rejected", func(t *testing.T) {
		t.Parallel()

		s := NewSMACrossover(20, 5)
		err := s.Initialize("")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
	})
}
