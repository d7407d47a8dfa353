package loader

import (
	"strconv"
	"strings"

	"insights/internal/core"
)

// inferType guesses the type of a non-contract column. A type wins when at
// least 80% of the non-empty cells match it; flags are checked before
// numbers so 0/1 columns read as flags.
func inferType(rows [][]string, col int) core.ColumnType {
	var values []string
	for _, row := range rows {
		if col < len(row) && row[col] != "" {
			values = append(values, row[col])
		}
	}
	if len(values) == 0 {
		return core.TypeString
	}

	var flags, ints, floats, stamps int
	for _, v := range values {
		if _, err := core.ParseFlag(v); err == nil {
			flags++
		}
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			ints++
		}
		if _, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64); err == nil {
			floats++
		}
		if core.ParseTimestamp(v).Valid {
			stamps++
		}
	}

	threshold := (len(values)*8 + 9) / 10
	switch {
	case flags >= threshold:
		return core.TypeFlag
	case ints >= threshold:
		return core.TypeInteger
	case floats >= threshold:
		return core.TypeFloat
	case stamps >= threshold:
		return core.TypeTimestamp
	}
	return core.TypeString
}
