package recurrence

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
	"time"
)

// WeekdaySet is the set of week days a weekly rule triggers on.
// Bit i is set when time.Weekday(i) is a member.
type WeekdaySet uint8

const allDays = WeekdaySet(1<<7 - 1)

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if validWeekday(d) {
			s |= 1 << uint(d)
		}
	}
	return s
}

func validWeekday(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return validWeekday(d) && s&(1<<uint(d)) != 0
}

// Toggle flips membership of d. Toggling the same day twice restores the set.
func (s WeekdaySet) Toggle(d time.Weekday) WeekdaySet {
	if !validWeekday(d) {
		return s
	}
	return s ^ (1 << uint(d))
}

func (s WeekdaySet) Len() int {
	return bits.OnesCount8(uint8(s & allDays))
}

func (s WeekdaySet) IsEmpty() bool {
	return s&allDays == 0
}

// Days returns the members from Sunday to Saturday.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, s.Len())
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, s.Len())
	for _, d := range s.Days() {
		names = append(names, strings.ToUpper(d.String()))
	}
	return json.Marshal(names)
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set WeekdaySet
	for _, n := range names {
		d, err := ParseWeekday(n)
		if err != nil {
			return err
		}
		set |= NewWeekdaySet(d)
	}
	*s = set
	return nil
}

// ParseWeekday accepts full names in any case ("Tuesday", "TUESDAY"),
// three letter ("tue") and two letter ("Tu") abbreviations.
func ParseWeekday(raw string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if len(v) >= 2 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			name := strings.ToLower(d.String())
			if v == name || (len(v) <= 3 && strings.HasPrefix(name, v)) {
				return d, nil
			}
		}
	}
	return time.Sunday, fmt.Errorf("unknown week day %q", raw)
}

// Abbrev is the two letter label used for week day buttons.
func Abbrev(d time.Weekday) string {
	return d.String()[:2]
}

// DisplayOrder rotates the week so that startOfWeek comes first.
// It only affects presentation; WeekdaySet is order independent.
func DisplayOrder(startOfWeek time.Weekday) []time.Weekday {
	if !validWeekday(startOfWeek) {
		startOfWeek = time.Sunday
	}
	order := make([]time.Weekday, 7)
	for i := range order {
		order[i] = (startOfWeek + time.Weekday(i)) % 7
	}
	return order
}
