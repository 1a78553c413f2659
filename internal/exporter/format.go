package exporter

import (
	"fmt"
)

// formatFloat formats a float64 value for CSV output. Six decimal places
// keep coefficient estimates and p-values distinguishable without dragging
// full float precision into the file.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.6f", f)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}
