package collector

import (
	"time"

	"github.com/scmhub/calendar"
	log "github.com/sirupsen/logrus"
)

// TradingCalendar decides whether a date is a business day of one exchange.
type TradingCalendar struct {
	cal      *calendar.Calendar
	location *time.Location
}

// NewTradingCalendar loads the exchange calendar for an ISO 10383 MIC
// (e.g. "xnse", "xnys"). Unknown MICs fall back to Monday through Friday.
func NewTradingCalendar(mic string) *TradingCalendar {
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		log.Warnf("[collector] no trading calendar for MIC %q, using weekdays", mic)
		return &TradingCalendar{location: time.UTC}
	}
	loc := cal.Loc
	if loc == nil {
		loc = time.UTC
	}
	return &TradingCalendar{cal: cal, location: loc}
}

// IsTradingDay reports whether the exchange is open on date's calendar day.
func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = date.In(tc.location)
	if tc.cal == nil {
		wd := date.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return tc.cal.IsBusinessDay(date)
}
