package finance

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// RatioKind tags how a Ratio should be read.
type RatioKind int

const (
	// Finite means Value holds the ratio.
	Finite RatioKind = iota
	// PositiveInfinite is a positive numerator over a zero denominator.
	PositiveInfinite
	// NegativeInfinite is a negative numerator over a zero denominator.
	NegativeInfinite
	// ZeroByConvention is a zero numerator over a zero denominator.
	ZeroByConvention
)

func (k RatioKind) String() string {
	switch k {
	case Finite:
		return "finite"
	case PositiveInfinite:
		return "+inf"
	case NegativeInfinite:
		return "-inf"
	case ZeroByConvention:
		return "zero"
	default:
		return fmt.Sprintf("RatioKind(%d)", int(k))
	}
}

// Ratio is a metric that may be undefined because its denominator is zero.
// Value is meaningful only when Kind is Finite.
type Ratio struct {
	Kind  RatioKind
	Value float64
}

// FiniteRatio wraps an ordinary value.
func FiniteRatio(v float64) Ratio {
	return Ratio{Kind: Finite, Value: v}
}

// SignedRatio returns num/den × scale when den > 0. Otherwise the result is
// +inf, -inf or zero following the sign of num.
func SignedRatio(num, den, scale float64) Ratio {
	if den > 0 {
		return FiniteRatio(num / den * scale)
	}
	switch {
	case num > 0:
		return Ratio{Kind: PositiveInfinite}
	case num < 0:
		return Ratio{Kind: NegativeInfinite}
	default:
		return Ratio{Kind: ZeroByConvention}
	}
}

// IsFinite reports whether r holds an ordinary value.
func (r Ratio) IsFinite() bool { return r.Kind == Finite }

// Float returns r as a float64, using IEEE infinities for the sentinels.
func (r Ratio) Float() float64 {
	switch r.Kind {
	case PositiveInfinite:
		return math.Inf(1)
	case NegativeInfinite:
		return math.Inf(-1)
	case ZeroByConvention:
		return 0
	default:
		return r.Value
	}
}

// Display renders r with two decimals and "∞" or "-∞" for infinities. Zero
// by convention renders as "0.00".
func (r Ratio) Display() string {
	switch r.Kind {
	case PositiveInfinite:
		return "∞"
	case NegativeInfinite:
		return "-∞"
	case ZeroByConvention:
		return "0.00"
	default:
		return fmt.Sprintf("%.2f", r.Value)
	}
}

func (r Ratio) String() string { return r.Display() }

// MarshalJSON encodes finite values as numbers, infinities as "+inf" and
// "-inf", and zero by convention as 0.
func (r Ratio) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case Finite:
		return json.Marshal(r.Value)
	case PositiveInfinite, NegativeInfinite:
		return json.Marshal(r.Kind.String())
	case ZeroByConvention:
		return []byte("0"), nil
	default:
		return nil, eris.Errorf("finance: unknown ratio kind %d", int(r.Kind))
	}
}

// UnmarshalJSON accepts the encodings produced by MarshalJSON. A plain 0
// decodes as a finite zero; null decodes as zero by convention.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio{Kind: ZeroByConvention}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "+inf", "inf":
			*r = Ratio{Kind: PositiveInfinite}
		case "-inf":
			*r = Ratio{Kind: NegativeInfinite}
		default:
			return eris.Errorf("finance: invalid ratio %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "finance: decode ratio")
	}
	*r = FiniteRatio(v)
	return nil
}
