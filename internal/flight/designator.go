package flight

import (
	"regexp"
	"strings"
)

// A two character IATA carrier is tried before a three letter ICAO one, so
// "AI202" reads as AI/202 rather than AI2/02.
var designatorPattern = regexp.MustCompile(`^([A-Z0-9]{2}|[A-Z]{3})(\d{1,4})$`)

// ParseDesignator splits a flight designator such as "AI202" into carrier
// code and flight number.  ok is false when id does not look like one.
func ParseDesignator(id string) (carrier, number string, ok bool) {
	m := designatorPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(id)))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
