package terbilang

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToWords(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "Rupiah"},
		{1, "Satu Rupiah"},
		{10, "Sepuluh Rupiah"},
		{11, "Sebelas Rupiah"},
		{12, "Dua Belas Rupiah"},
		{15, "Lima Belas Rupiah"},
		{20, "Dua Puluh Rupiah"},
		{45, "Empat Puluh Lima Rupiah"},
		{100, "Seratus Rupiah"},
		{111, "Seratus Sebelas Rupiah"},
		{250, "Dua Ratus Lima Puluh Rupiah"},
		{1000, "Seribu Rupiah"},
		{1999, "Seribu Sembilan Ratus Sembilan Puluh Sembilan Rupiah"},
		{2000, "Dua Ribu Rupiah"},
		{100000, "Seratus Ribu Rupiah"},
		{999000, "Sembilan Ratus Sembilan Puluh Sembilan Ribu Rupiah"},
		{1000000, "Satu Juta Rupiah"},
		{1500000, "Satu Juta Lima Ratus Ribu Rupiah"},
		{2001000, "Dua Juta Seribu Rupiah"},
		{3000000000, "Tiga Milyar Rupiah"},
		{7000000000000, "Tujuh Trilyun Rupiah"},
		{1000000000000000, "Seribu Trilyun Rupiah"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ToWords(tc.amount), "amount %d", tc.amount)
	}
}

func TestToWordsSpellsMagnitudeOfNegatives(t *testing.T) {
	require.Equal(t, "Lima Belas Rupiah", ToWords(-15))
	require.NotPanics(t, func() { _ = ToWords(math.MinInt64) })
}

func TestFromDecimalTruncates(t *testing.T) {
	require.Equal(t, "Empat Ratus Sembilan Puluh Sembilan Ribu Lima Ratus Rupiah", FromDecimal(decimal.RequireFromString("499500.75")))
}
