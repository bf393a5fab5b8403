package score

import (
	"fmt"
	"math"
)

const (
	// maxFloatDenominator bounds the denominators DurationFromFloat will try.
	// 1024 covers nested tuplets down to 256th notes.
	maxFloatDenominator = 1024

	// maxBinaryDenominator bounds the power-of-two denominators checked for an
	// exact match, far below any notated value.
	maxBinaryDenominator = 1 << 20

	// exactTolerance is the relative error under which a float is taken to be
	// the fraction itself.
	exactTolerance = 1e-8

	// floatTolerance is the relative error under which a rounded decimal snaps
	// to a simple fraction.
	floatTolerance = 5e-4
)

// Duration is a rational note length measured in whole notes (a quarter note
// is 1/4). The zero value means "undefined".
type Duration struct {
	Num int64
	Den int64
}

// NewDuration returns num/den with the sign carried by the numerator.
// A zero denominator yields the undefined duration.
func NewDuration(num, den int64) Duration {
	if den == 0 {
		return Duration{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	return Duration{Num: num, Den: den}
}

// DurationFromFloat converts a decimal length into a fraction. A value that
// is exactly a fraction with a small or power-of-two denominator keeps it, so
// 3/128 survives the trip through float64. Otherwise the first continued
// fraction convergent within a relative tolerance is used, so 0.3333 and 1/3
// land on the same value. NaN, infinities, negative values and lengths too
// short for any allowed denominator yield the undefined duration.
func DurationFromFloat(f float64) Duration {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return Duration{}
	}
	if f == 0 {
		return Duration{Num: 0, Den: 1}
	}
	if d, ok := exactFraction(f); ok {
		return d
	}
	return convergent(f)
}

// exactFraction finds h/k equal to f up to float rounding, trying every
// denominator up to maxFloatDenominator and then larger powers of two.
func exactFraction(f float64) (Duration, bool) {
	match := func(k int64) (Duration, bool) {
		h := math.Round(f * float64(k))
		if h > math.MaxInt32 || h < 1 {
			return Duration{}, false
		}
		if math.Abs(f-h/float64(k)) <= exactTolerance*f {
			return NewDuration(int64(h), k).Canonical(), true
		}
		return Duration{}, false
	}
	for k := int64(1); k <= maxFloatDenominator; k++ {
		if d, ok := match(k); ok {
			return d, true
		}
	}
	for k := int64(maxFloatDenominator) * 2; k <= maxBinaryDenominator; k *= 2 {
		if d, ok := match(k); ok {
			return d, true
		}
	}
	return Duration{}, false
}

func convergent(f float64) Duration {
	// h and k hold the last two convergents' numerators and denominators.
	hPrev, h := int64(0), int64(1)
	kPrev, k := int64(1), int64(0)
	x := f
	for i := 0; i < 64; i++ {
		a := math.Floor(x)
		if a > math.MaxInt32 {
			break
		}
		ai := int64(a)
		hNext := ai*h + hPrev
		kNext := ai*k + kPrev
		if kNext > maxFloatDenominator {
			break
		}
		hPrev, h = h, hNext
		kPrev, k = k, kNext

		if math.Abs(f-float64(h)/float64(k)) <= floatTolerance*f {
			break
		}
		frac := x - a
		if frac < 1e-12 {
			break
		}
		x = 1 / frac
	}
	if k == 0 || h == 0 {
		return Duration{}
	}
	return NewDuration(h, k).Canonical()
}

// Valid reports whether d describes a usable length.
func (d Duration) Valid() bool {
	return d.Den > 0 && d.Num >= 0
}

// Canonical returns d reduced to lowest terms. Undefined durations are
// returned unchanged.
func (d Duration) Canonical() Duration {
	if !d.Valid() {
		return d
	}
	if d.Num == 0 {
		return Duration{Num: 0, Den: 1}
	}
	g := gcd(d.Num, d.Den)
	return Duration{Num: d.Num / g, Den: d.Den / g}
}

// Equal compares two durations by value, so 2/8 equals 1/4.
func (d Duration) Equal(o Duration) bool {
	if !d.Valid() || !o.Valid() {
		return d == o
	}
	return d.Canonical() == o.Canonical()
}

func (d Duration) String() string {
	if !d.Valid() {
		return ""
	}
	c := d.Canonical()
	return fmt.Sprintf("%d/%d", c.Num, c.Den)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
