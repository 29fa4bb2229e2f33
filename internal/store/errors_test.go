package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tradedesk/backoffice/internal/shared"
)

func TestErrorKeepsCauseAndMatchesUnavailable(t *testing.T) {
	cause := errors.New("connection refused")

	err := wrap("list balance items", cause)

	require.ErrorIs(t, err, shared.ErrStoreUnavailable)
	require.ErrorIs(t, err, cause)
	require.EqualError(t, err, "store: list balance items: connection refused")
	require.NoError(t, wrap("noop", nil))
}

func TestParseDecimals(t *testing.T) {
	var a, b decimal.Decimal
	require.NoError(t, parseDecimals(nil))
	require.Error(t, parseDecimals(map[*decimal.Decimal]string{&a: "x"}))
	require.NoError(t, parseDecimals(map[*decimal.Decimal]string{&a: "12.50", &b: "3"}))
	require.Equal(t, "12.5", a.String())
	require.Equal(t, "3", b.String())
}
