package model

import (
	"encoding/json"
	"math"
)

// NoData is the engine's "no value" marker.
const NoData = -1.0

// Optional is a float that may be absent. It replaces the engine's -1
// sentinel so that missing values cannot leak into arithmetic.
type Optional struct {
	Value float64
	Valid bool
}

// Some returns a valid Optional holding v.
func Some(v float64) Optional {
	return Optional{Value: v, Valid: true}
}

// None returns an absent Optional.
func None() Optional {
	return Optional{}
}

// FromSentinel maps the engine's -1 marker and NaN to an absent value.
func FromSentinel(v float64) Optional {
	if v == NoData || math.IsNaN(v) {
		return None()
	}
	return Some(v)
}

// Float returns the value, or NaN when absent.
func (o Optional) Float() float64 {
	if !o.Valid {
		return math.NaN()
	}
	return o.Value
}

// Sub subtracts two optionals. The result is absent unless both are present.
func (o Optional) Sub(other Optional) Optional {
	if !o.Valid || !other.Valid {
		return None()
	}
	return Some(o.Value - other.Value)
}

// MarshalJSON encodes an absent value as null.
func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON decodes null as absent.
func (o *Optional) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
