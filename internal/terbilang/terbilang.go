// Package terbilang spells Rupiah amounts in Indonesian words for printed documents.
package terbilang

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ribu    int64 = 1_000
	juta    int64 = 1_000_000
	milyar  int64 = 1_000_000_000
	trilyun int64 = 1_000_000_000_000
)

var satuan = [...]string{"", "Satu", "Dua", "Tiga", "Empat", "Lima", "Enam", "Tujuh", "Delapan", "Sembilan", "Sepuluh", "Sebelas"}

// ToWords spells amount followed by "Rupiah". Zero spells as "Rupiah" alone.
// Only the magnitude is spelled; callers print the sign themselves.
func ToWords(amount int64) string {
	n := uint64(amount)
	if amount < 0 {
		n = uint64(-(amount + 1)) + 1
	}
	return strings.Join(strings.Fields(spell(n)+" Rupiah"), " ")
}

// FromDecimal spells the whole Rupiah part of amount.
func FromDecimal(amount decimal.Decimal) string {
	return ToWords(amount.IntPart())
}

func spell(n uint64) string {
	switch {
	case n < 12:
		return " " + satuan[n]
	case n < 20:
		return spell(n-10) + " Belas"
	case n < 100:
		return spell(n/10) + " Puluh" + spell(n%10)
	case n < 200:
		return " Seratus" + spell(n-100)
	case n < 1000:
		return spell(n/100) + " Ratus" + spell(n%100)
	case n < 2000:
		return " Seribu" + spell(n-1000)
	case n < uint64(juta):
		return spell(n/uint64(ribu)) + " Ribu" + spell(n%uint64(ribu))
	case n < uint64(milyar):
		return spell(n/uint64(juta)) + " Juta" + spell(n%uint64(juta))
	case n < uint64(trilyun):
		return spell(n/uint64(milyar)) + " Milyar" + spell(n%uint64(milyar))
	default:
		return spell(n/uint64(trilyun)) + " Trilyun" + spell(n%uint64(trilyun))
	}
}
