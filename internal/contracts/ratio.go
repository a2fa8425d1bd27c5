package contracts

import (
	"encoding/json"
	"math"
)

// RatioStatus explains how a ratio value should be read
type RatioStatus string

const (
	RatioOK               RatioStatus = "ok"
	RatioDegenerate       RatioStatus = "degenerate"        // zero risk, value reported as 0
	RatioUnbounded        RatioStatus = "unbounded"         // +Inf, e.g. no losses
	RatioInsufficientData RatioStatus = "insufficient_data" // not enough history
)

// Ratio is a ratio metric together with its status.
// ⭐ +Inf는 메모리에서만 존재하고 JSON에서는 null + status로 표현
type Ratio struct {
	Value  float64     `json:"value"`
	Status RatioStatus `json:"status"`
}

// NewRatio returns an ok ratio
func NewRatio(v float64) Ratio {
	return Ratio{Value: v, Status: RatioOK}
}

// RatioOf wraps a computed quotient: +Inf is unbounded, NaN and -Inf are degenerate
func RatioOf(v float64) Ratio {
	switch {
	case math.IsInf(v, 1):
		return UnboundedRatio()
	case math.IsNaN(v), math.IsInf(v, -1):
		return DegenerateRatio()
	default:
		return NewRatio(v)
	}
}

// DegenerateRatio returns the zero-risk case
func DegenerateRatio() Ratio {
	return Ratio{Value: 0, Status: RatioDegenerate}
}

// UnboundedRatio returns the +Inf sentinel
func UnboundedRatio() Ratio {
	return Ratio{Value: math.Inf(1), Status: RatioUnbounded}
}

// InsufficientRatio returns a ratio that could not be computed
func InsufficientRatio() Ratio {
	return Ratio{Value: 0, Status: RatioInsufficientData}
}

// IsFinite reports whether the ratio carries a usable finite value
func (r Ratio) IsFinite() bool {
	return r.Status == RatioOK || r.Status == RatioDegenerate
}

type ratioJSON struct {
	Value  *float64    `json:"value"`
	Status RatioStatus `json:"status"`
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	out := ratioJSON{Status: r.Status}
	if !math.IsInf(r.Value, 0) && !math.IsNaN(r.Value) {
		v := r.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var in ratioJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Status = in.Status
	switch {
	case in.Status == RatioUnbounded:
		r.Value = math.Inf(1)
	case in.Value != nil:
		r.Value = *in.Value
	default:
		r.Value = 0
	}
	return nil
}
