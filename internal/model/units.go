package model

import (
	"fmt"
	"strings"
)

// unitSuffixes is checked in order; ApparentPower must precede Power.
var unitSuffixes = []struct {
	suffix string
	unit   string
}{
	{"Voltage", "V"},
	{"Current", "A"},
	{"Frequency", "Hz"},
	{"ApparentPower", "VA"},
	{"Power", "W"},
	{"Percentage", "%"},
	{"Capacity", "%"},
	{"Temperature", "°F"},
}

// UnitForKey derives the display unit from the reading key's suffix,
// e.g. "BatteryVoltage" -> "V". Unknown keys have no unit.
func UnitForKey(key string) string {
	for _, u := range unitSuffixes {
		if strings.HasSuffix(key, u.suffix) {
			return u.unit
		}
	}
	return ""
}

// FormatValue renders a fixed-point value for display: two decimals,
// ".00" dropped, followed by the unit for key.
func FormatValue(key string, value int64) string {
	s := fmt.Sprintf("%.2f", float64(value)/Scale)
	s = strings.TrimSuffix(s, ".00")
	return s + UnitForKey(key)
}
