// Package deadline computes the production cutoff date: orders placed on or
// before it are late.
package deadline

import (
	"errors"
	"time"
)

// maxWalkDays bounds the backward walk to ten years.
const maxWalkDays = 10 * 366

var ErrNoWorkingDay = errors.New("at least one working weekday is required")

// Weekdays lists the configuration keys in calendar order, Monday first.
var Weekdays = []string{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"}

var weekdayByName = map[string]time.Weekday{
	"lundi":    time.Monday,
	"mardi":    time.Tuesday,
	"mercredi": time.Wednesday,
	"jeudi":    time.Thursday,
	"vendredi": time.Friday,
	"samedi":   time.Saturday,
	"dimanche": time.Sunday,
}

// DefaultWorkingDays is Monday to Friday.
func DefaultWorkingDays() map[string]bool {
	days := make(map[string]bool, len(Weekdays))
	for _, name := range Weekdays {
		days[name] = name != "samedi" && name != "dimanche"
	}
	return days
}

// ValidWorkingDays reports whether days only names known weekdays and enables at least one.
func ValidWorkingDays(days map[string]bool) error {
	enabled := false
	for name, on := range days {
		if _, ok := weekdayByName[name]; !ok {
			return errors.New("unknown weekday " + name)
		}
		enabled = enabled || on
	}
	if !enabled {
		return ErrNoWorkingDay
	}
	return nil
}

// ComputeDeadline walks back from today one calendar day at a time, counting
// only working weekdays that are not holidays, and returns the day on which the
// count reaches joursDelai. isHoliday may be nil.
func ComputeDeadline(today time.Time, joursDelai int, joursOuvrables map[string]bool, isHoliday func(time.Time) bool) (time.Time, error) {
	if joursDelai < 0 {
		return time.Time{}, errors.New("jours delai must not be negative")
	}
	if err := ValidWorkingDays(joursOuvrables); err != nil {
		return time.Time{}, err
	}
	working := map[time.Weekday]bool{}
	for name, on := range joursOuvrables {
		working[weekdayByName[name]] = on
	}

	date := startOfDay(today)
	for counted, walked := 0, 0; counted < joursDelai; walked++ {
		if walked >= maxWalkDays {
			return time.Time{}, errors.New("deadline walk exceeded ten years")
		}
		date = date.AddDate(0, 0, -1)
		if !working[date.Weekday()] {
			continue
		}
		if isHoliday != nil && isHoliday(date) {
			continue
		}
		counted++
	}
	return date, nil
}

// IsLate reports whether an order dated orderDate is on or before the deadline,
// comparing calendar days in the deadline's location.
func IsLate(orderDate, deadline time.Time) bool {
	return !startOfDay(orderDate.In(deadline.Location())).After(startOfDay(deadline))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
