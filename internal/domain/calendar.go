package domain

import (
	"fmt"
	"strings"
	"time"
)

// CalendarDate is the pure date component of a timestamp.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date, the representation written to DATE columns.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Quarter returns 1..4.
func (d CalendarDate) Quarter() int {
	return (int(d.Month)-1)/3 + 1
}

// WeekdayIndex returns 0 for Monday through 6 for Sunday.
func (d CalendarDate) WeekdayIndex() int {
	return (int(d.Time().Weekday()) + 6) % 7
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// TimeOfDay is the pure time component of a timestamp at whole-second resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// TimeOfDayOf returns the clock reading of t, truncating sub-second precision.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay{Hour: h, Minute: m, Second: s}
}

// TimeOfDayFromMicros converts microseconds since midnight, as stored in TIME columns.
func TimeOfDayFromMicros(us int64) TimeOfDay {
	secs := us / int64(time.Second/time.Microsecond)
	return TimeOfDay{Hour: int(secs / 3600), Minute: int(secs % 3600 / 60), Second: int(secs % 60)}
}

// Micros returns microseconds since midnight.
func (t TimeOfDay) Micros() int64 {
	return int64(t.Hour*3600+t.Minute*60+t.Second) * int64(time.Second/time.Microsecond)
}

// Period returns the coarse day period the hour falls in.
func (t TimeOfDay) Period() DayPeriod {
	return PeriodOf(t.Hour)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// SplitTimestamp partitions a timestamp into its date and time-of-day components.
func SplitTimestamp(t time.Time) (CalendarDate, TimeOfDay) {
	return DateOf(t), TimeOfDayOf(t)
}

// DayPeriod buckets an hour of the day.
type DayPeriod string

const (
	PeriodOvernight DayPeriod = "Overnight"
	PeriodMorning   DayPeriod = "Morning"
	PeriodAfternoon DayPeriod = "Afternoon"
	PeriodEvening   DayPeriod = "Evening"
)

// PeriodOf maps [6,12) Morning, [12,18) Afternoon, [18,24) Evening, anything else Overnight.
func PeriodOf(hour int) DayPeriod {
	switch {
	case hour >= 6 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodAfternoon
	case hour >= 18 && hour < 24:
		return PeriodEvening
	default:
		return PeriodOvernight
	}
}

// CalendarLocale names months and weekdays. Weekdays start on Monday.
type CalendarLocale struct {
	Tag      string
	Months   [12]string
	Weekdays [7]string
}

var (
	LocaleEnglish = CalendarLocale{
		Tag: "en",
		Months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
		Weekdays: [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	}
	LocalePortuguese = CalendarLocale{
		Tag: "pt-BR",
		Months: [12]string{"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
			"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro"},
		Weekdays: [7]string{"Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado", "Domingo"},
	}
)

// ParseCalendarLocale resolves a locale tag. An empty tag selects English.
func ParseCalendarLocale(tag string) (CalendarLocale, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "en", "en-us":
		return LocaleEnglish, nil
	case "pt", "pt-br":
		return LocalePortuguese, nil
	default:
		return CalendarLocale{}, fmt.Errorf("unsupported calendar locale %q", tag)
	}
}

// MonthName returns the localized name of m.
func (l CalendarLocale) MonthName(m time.Month) string {
	return l.Months[int(m)-1]
}

// WeekdayName returns the localized name of a Monday-based weekday index.
func (l CalendarLocale) WeekdayName(idx int) string {
	return l.Weekdays[idx]
}

// DateDimension is one row of the date dimension.
type DateDimension struct {
	Date        CalendarDate
	Year        int
	Month       int
	Day         int
	Quarter     int
	Weekday     int
	MonthName   string
	WeekdayName string
}

// NewDateDimension derives every date attribute.
func NewDateDimension(d CalendarDate, locale CalendarLocale) DateDimension {
	weekday := d.WeekdayIndex()
	return DateDimension{
		Date:        d,
		Year:        d.Year,
		Month:       int(d.Month),
		Day:         d.Day,
		Quarter:     d.Quarter(),
		Weekday:     weekday,
		MonthName:   locale.MonthName(d.Month),
		WeekdayName: locale.WeekdayName(weekday),
	}
}

// TimeDimension is one row of the time dimension.
type TimeDimension struct {
	Time   TimeOfDay
	Hour   int
	Minute int
	Second int
	Period DayPeriod
}

// NewTimeDimension derives every time attribute.
func NewTimeDimension(t TimeOfDay) TimeDimension {
	return TimeDimension{
		Time:   t,
		Hour:   t.Hour,
		Minute: t.Minute,
		Second: t.Second,
		Period: t.Period(),
	}
}
