// Package textutil provides small text formatting helpers shared by intake,
// the sequencer, and the CLI.
package textutil

import "fmt"

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatByteSize renders a byte count as a human-readable base-1024 label
// with two-decimal rounding. Zero bytes renders as the literal "0 Byte".
func FormatByteSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Byte"
	}
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}
