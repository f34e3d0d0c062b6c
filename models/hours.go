package models

import (
	"strconv"
	"strings"
	"time"
)

// Operating hours are always evaluated in Indian Standard Time, no matter
// where the server runs. IST has no DST, so a fixed offset is exact.
var IST = time.FixedZone("IST", 5*3600+30*60)

// IsCurrentlyOpen reports whether a canteen accepts orders at the given
// instant. It is a pure function of the canteen snapshot and the clock, so
// the answer is the same whether the snapshot came from cache or storage.
func IsCurrentlyOpen(c *Canteen, now time.Time) bool {
	if !c.IsOpen {
		return false
	}
	if c.OpeningTime == "" || c.ClosingTime == "" {
		return true
	}

	ist := now.In(IST)
	current := ist.Hour()*60 + ist.Minute()

	open := clockMinutes(c.OpeningTime)
	close := clockMinutes(c.ClosingTime)

	// Both bounds inclusive.
	return current >= open && current <= close
}

// clockMinutes parses "HH:MM" into minutes since midnight. Malformed parts
// parse as zero, matching the lenient handling of stored timings.
func clockMinutes(clock string) int {
	h, m := 0, 0
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) > 0 {
		h, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		m, _ = strconv.Atoi(parts[1])
	}
	return h*60 + m
}
