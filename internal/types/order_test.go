package types

import (
	"testing"

	"github.com/rxtech-lab/argo-exec/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSideFromString(t *testing.T) {
	side, err := SideFromString("BUY")
	assert.NoError(t, err)
	assert.Equal(t, SideBuy, side)

	side, err = SideFromString("SELL")
	assert.NoError(t, err)
	assert.Equal(t, SideSell, side)

	_, err = SideFromString("buy")
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSide))
}

func TestOrderTypeFromString(t *testing.T) {
	typ, err := OrderTypeFromString("STOP_LOSS_LIMIT")
	assert.NoError(t, err)
	assert.Equal(t, OrderTypeStopLossLimit, typ)

	typ, err = OrderTypeFromString("MARKET")
	assert.NoError(t, err)
	assert.Equal(t, OrderTypeMarket, typ)

	_, err = OrderTypeFromString("TRAILING_STOP")
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrderType))
}
