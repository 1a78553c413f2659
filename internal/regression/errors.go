package regression

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientData indicates the requested window cannot produce a
// well-posed fit: either the window is smaller than the number of
// independent variables plus two, or fewer aligned observations exist than
// the caller is entitled to expect. Surfaced to the caller with no partial
// result.
var ErrInsufficientData = errors.New("insufficient observations for regression window")

// ErrSingularDesign is the sentinel wrapped by SingularDesignError; use
// errors.Is against this value.
var ErrSingularDesign = errors.New("singular design matrix")

// SingularDesignError reports a window whose design matrix is (near-)
// singular, e.g. a constant factor column or collinear factors. It is
// window-local: the rolling fit skips the window and continues.
type SingularDesignError struct {
	EndDate time.Time
	Cond    float64
}

// Error implements the error interface
func (e *SingularDesignError) Error() string {
	if e.Cond > 0 {
		return fmt.Sprintf("singular design matrix in window ending %s (condition number %.3g)",
			e.EndDate.Format("2006-01-02"), e.Cond)
	}
	return fmt.Sprintf("singular design matrix in window ending %s", e.EndDate.Format("2006-01-02"))
}

// Unwrap lets errors.Is(err, ErrSingularDesign) match
func (e *SingularDesignError) Unwrap() error {
	return ErrSingularDesign
}
