package exporter

import (
	"strconv"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/intel"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// formatOpt renders unknown values as an empty cell
func formatOpt(o intel.Opt[float64]) string {
	if v, ok := o.Get(); ok {
		return formatFloat(v)
	}
	return ""
}

// formatPillar leaves pillars without any known input empty
func formatPillar(p intel.PillarScore) string {
	if !p.Known() {
		return ""
	}
	return formatFloat(p.Value)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
