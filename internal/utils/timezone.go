package utils

import "time"

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		return time.UTC
	}
	return loc
}
