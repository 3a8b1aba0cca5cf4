package strategy

import "time"

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Session boundaries in minutes from midnight IST.
const (
	openingRangeStart = 9*60 + 15  // 09:15, opening range collection starts
	openingRangeEnd   = 9*60 + 30  // 09:30, range locks and evaluation starts
	evaluationEnd     = 15*60 + 15 // 15:15, last breakout evaluation
	squareOffCutoff   = 15*60 + 15 // 15:15, open positions are squared off
)

func minuteOfDay(t time.Time) int {
	ist := t.In(IST)
	return ist.Hour()*60 + ist.Minute()
}

// InOpeningRange reports whether t falls inside the range-collection
// window [09:15, 09:30) IST.
func InOpeningRange(t time.Time) bool {
	m := minuteOfDay(t)
	return m >= openingRangeStart && m < openingRangeEnd
}

// InEvaluationWindow reports whether t falls inside the breakout
// evaluation window [09:30, 15:15] IST.
func InEvaluationWindow(t time.Time) bool {
	m := minuteOfDay(t)
	return m >= openingRangeEnd && m <= evaluationEnd
}

// PastSquareOff reports whether t is at or past the forced square-off
// cutoff.
func PastSquareOff(t time.Time) bool {
	return minuteOfDay(t) >= squareOffCutoff
}

// TradingDate returns the IST calendar date of t, used for daily
// state rollover.
func TradingDate(t time.Time) string {
	return t.In(IST).Format("2006-01-02")
}
