package shape

import (
	"regexp"
	"time"
)

var (
	dateRegex    = regexp.MustCompile(`^(\d{4})(-(0[1-9]|1[012])(-(0[1-9]|[12]\d|3[01]))?)?$`)
	instantRegex = regexp.MustCompile(`^(\d{4})-(0[1-9]|1[012])-(0[1-9]|[12]\d|3[01])T([01]\d|2[0-3]):[0-5]\d:([0-5]\d|60)(\.\d+)?(Z|[+-]((0\d|1[0-3]):[0-5]\d|14:00))$`)
)

// dateLayouts maps the length of a date string to its layout.
var dateLayouts = map[int]string{
	4:  "2006",
	7:  "2006-01",
	10: "2006-01-02",
}

// IsDate reports whether s is YYYY, YYYY-MM or YYYY-MM-DD naming a real
// calendar date.
func IsDate(s string) bool {
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayouts[len(s)], s)
	return err == nil
}

// IsDateTime reports whether s is a full timestamp with a zone offset.
func IsDateTime(s string) bool {
	if !instantRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}
