package regression

import (
	"time"
)

// Observation is one aligned row: a dependent value plus one value per
// independent variable, all sharing the same date. The independent values
// follow the order of the owning Dataset's Names.
type Observation struct {
	Date         time.Time `json:"date"`
	Dependent    float64   `json:"dependent"`
	Independents []float64 `json:"independents"`
}

// Dataset is the aligned, date-ordered input to Fit. Names fixes the order
// and identity of the independent variables for every observation and every
// window fitted from it.
type Dataset struct {
	Names []string      `json:"names"`
	Obs   []Observation `json:"observations"`
}

// Len returns the number of aligned observations
func (d Dataset) Len() int {
	return len(d.Obs)
}

// NumVars returns the number of independent variables
func (d Dataset) NumVars() int {
	return len(d.Names)
}
