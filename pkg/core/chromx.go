package core

import "fmt"

// ChromXType identifies which chromatographic axis a value lives on.
type ChromXType int

const (
	ChromXTypeRT ChromXType = iota
	ChromXTypeDrift
	ChromXTypeMz
)

func (t ChromXType) String() string {
	switch t {
	case ChromXTypeRT:
		return "RT"
	case ChromXTypeDrift:
		return "Drift"
	case ChromXTypeMz:
		return "Mz"
	default:
		return fmt.Sprintf("ChromXType(%d)", int(t))
	}
}

// ChromXUnit is the unit carried by an axis value.
type ChromXUnit int

const (
	UnitMin ChromXUnit = iota
	UnitSec
	UnitMsec
	UnitMz
)

func (u ChromXUnit) String() string {
	switch u {
	case UnitMin:
		return "min"
	case UnitSec:
		return "sec"
	case UnitMsec:
		return "msec"
	case UnitMz:
		return "m/z"
	default:
		return "unknown"
	}
}

// ChromXs holds a position on every chromatographic axis at once. MainType
// selects the axis returned by Value.
type ChromXs struct {
	RT       float64
	Drift    float64
	Mz       float64
	MainType ChromXType
}

// NewRT returns a position on the retention-time axis (minutes).
func NewRT(rt float64) ChromXs {
	return ChromXs{RT: rt, MainType: ChromXTypeRT}
}

// NewDrift returns a position on the drift-time axis (milliseconds).
func NewDrift(dt float64) ChromXs {
	return ChromXs{Drift: dt, MainType: ChromXTypeDrift}
}

// Value returns the value on the main axis.
func (c ChromXs) Value() float64 {
	switch c.MainType {
	case ChromXTypeDrift:
		return c.Drift
	case ChromXTypeMz:
		return c.Mz
	default:
		return c.RT
	}
}

// WithValue returns a copy with the main-axis value replaced.
func (c ChromXs) WithValue(v float64) ChromXs {
	switch c.MainType {
	case ChromXTypeDrift:
		c.Drift = v
	case ChromXTypeMz:
		c.Mz = v
	default:
		c.RT = v
	}
	return c
}

// Unit returns the unit of the main axis.
func (c ChromXs) Unit() ChromXUnit {
	switch c.MainType {
	case ChromXTypeDrift:
		return UnitMsec
	case ChromXTypeMz:
		return UnitMz
	default:
		return UnitMin
	}
}

func (c ChromXs) String() string {
	return fmt.Sprintf("%s=%.4f %s", c.MainType, c.Value(), c.Unit())
}
