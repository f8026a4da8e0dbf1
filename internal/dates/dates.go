// Package dates resolves the short natural-language date phrases accepted
// when scheduling a review ("tomorrow", "in two weeks", "next friday",
// "2024-05-01") into calendar dates and canonical daily-note keys.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/tickler/internal/models"
)

// DefaultLayout formats canonical date keys (YYYY-MM-DD).
const DefaultLayout = "2006-01-02"

var (
	isoRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	inRe       = regexp.MustCompile(`^(?:in|after) (\S+) (day|week|month|year)s?$`)
	fromNowRe  = regexp.MustCompile(`^(\S+) (day|week|month|year)s? (from now|ago)$`)
	relUnitRe  = regexp.MustCompile(`^(next|last) (week|month|year)$`)
	weekdayRe  = regexp.MustCompile(`^(?:(next|last|this) )?([a-z]+)$`)
	spaceRunRe = regexp.MustCompile(`\s+`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// Parser resolves date phrases relative to a clock.
type Parser struct {
	layout string
	now    func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock used to resolve relative phrases.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// NewParser returns a Parser that formats keys with layout (a Go time
// layout). An empty layout uses DefaultLayout.
func NewParser(layout string, opts ...Option) *Parser {
	if layout == "" {
		layout = DefaultLayout
	}
	p := &Parser{layout: layout, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse resolves text. The result is marked invalid, with an empty key,
// when text is not a recognised phrase.
func (p *Parser) Parse(text string) models.ReviewTarget {
	target := models.ReviewTarget{DateInput: text}
	d, ok := p.resolve(text)
	if !ok {
		return target
	}
	target.Date = d
	target.DateKey = d.Format(p.layout)
	target.Valid = true
	return target
}

func (p *Parser) resolve(text string) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(spaceRunRe.ReplaceAllString(text, " ")))
	s = strings.TrimSuffix(s, ".")
	today := startOfDay(p.now())

	switch s {
	case "":
		return time.Time{}, false
	case "today", "now":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "day after tomorrow", "the day after tomorrow":
		return today.AddDate(0, 0, 2), true
	}

	if isoRe.MatchString(s) {
		d, err := time.ParseInLocation(DefaultLayout, s, today.Location())
		return d, err == nil
	}
	if m := inRe.FindStringSubmatch(s); m != nil {
		return shift(today, m[1], m[2], 1)
	}
	if m := fromNowRe.FindStringSubmatch(s); m != nil {
		sign := 1
		if m[3] == "ago" {
			sign = -1
		}
		return shift(today, m[1], m[2], sign)
	}
	if m := relUnitRe.FindStringSubmatch(s); m != nil {
		sign := 1
		if m[1] == "last" {
			sign = -1
		}
		return shift(today, "1", m[2], sign)
	}
	if m := weekdayRe.FindStringSubmatch(s); m != nil {
		wd, ok := weekdays[m[2]]
		if !ok {
			return time.Time{}, false
		}
		return nearestWeekday(today, wd, m[1]), true
	}
	return time.Time{}, false
}

// shift moves today by count units in direction sign.
func shift(today time.Time, count, unit string, sign int) (time.Time, bool) {
	n, ok := parseCount(count)
	if !ok {
		return time.Time{}, false
	}
	n *= sign
	switch unit {
	case "day":
		return today.AddDate(0, 0, n), true
	case "week":
		return today.AddDate(0, 0, 7*n), true
	case "month":
		return today.AddDate(0, n, 0), true
	case "year":
		return today.AddDate(n, 0, 0), true
	}
	return time.Time{}, false
}

func parseCount(s string) (int, bool) {
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// nearestWeekday resolves a weekday name. "last" looks 1 to 7 days back,
// any other qualifier 1 to 7 days ahead.
func nearestWeekday(today time.Time, wd time.Weekday, qualifier string) time.Time {
	if qualifier == "last" {
		diff := (int(today.Weekday()) - int(wd) + 7) % 7
		if diff == 0 {
			diff = 7
		}
		return today.AddDate(0, 0, -diff)
	}
	diff := (int(wd) - int(today.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return today.AddDate(0, 0, diff)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
