package schedule

import "time"

// FindMatch returns the first entry whose hour and minute equal now's, read in
// now's own location. Entries need not be unique; list order breaks ties.
func FindMatch(now time.Time, entries []Entry) (Entry, bool) {
	h, m := now.Hour(), now.Minute()
	for _, e := range entries {
		if e.Hours == h && e.Minutes == m {
			return e, true
		}
	}
	return Entry{}, false
}
