// Package datewindow holds the Monday-first calendar arithmetic used by the
// week strip and the day list. All functions are pure and work in the
// location carried by their arguments.
package datewindow

import "time"

const keyLayout = "2006-01-02"

// StartOfDay returns local midnight of the calendar day containing t.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Key identifies the calendar day containing t. Two instants share a key
// only when they fall on the same day in t's location.
func Key(t time.Time) string {
	return t.Format(keyLayout)
}

// ParseKey is the inverse of Key for the given location.
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(keyLayout, key, loc)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddDays moves by whole calendar days, keeping midnight across DST changes.
func AddDays(t time.Time, days int) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+days, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday midnight of the week containing t.
func WeekStart(t time.Time) time.Time {
	return AddDays(t, -daysFromMonday(t.Weekday()))
}

// WeekOf returns the seven days Monday..Sunday of the week containing t.
func WeekOf(t time.Time) [7]time.Time {
	monday := WeekStart(t)
	var week [7]time.Time
	for i := range week {
		week[i] = AddDays(monday, i)
	}
	return week
}

// WeekOffset counts Monday-start weeks from the week of from to the week of
// to. It is negative when to lies in an earlier week.
func WeekOffset(from, to time.Time) int {
	return (civilDays(WeekStart(to)) - civilDays(WeekStart(from))) / 7
}

// DaysBetween is the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return civilDays(b) - civilDays(a)
}

func daysFromMonday(weekday time.Weekday) int {
	if weekday == time.Sunday {
		return 6
	}
	return int(weekday) - int(time.Monday)
}

// civilDays maps a calendar date to a day count that ignores zone offsets,
// so day differences are exact even across DST transitions.
func civilDays(t time.Time) int {
	year, month, day := t.Date()
	return int(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
