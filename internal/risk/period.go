package risk

import "time"

// Period is a quarterly reporting window. Records are only mutable while
// the window containing "now" matches the one they were filed under.
type Period struct {
	Quarter int `json:"quarter"` // 1..4
	Year    int `json:"year"`
}

// PeriodOf returns the reporting period containing t.
func PeriodOf(t time.Time) Period {
	return Period{
		Quarter: (int(t.Month())-1)/3 + 1,
		Year:    t.Year(),
	}
}

// ValidPeriod reports whether p names a usable quarter/year pair.
func ValidPeriod(p Period) bool {
	return p.Quarter >= 1 && p.Quarter <= 4 && p.Year >= 2000
}

// IsEditable implements the period gate: a record may be edited only while
// its status still permits mutation and its reporting period contains
// asOf. Approved and closed records are never editable; neither is any
// record whose quarter has elapsed.
func IsEditable(rec RiskRecord, asOf time.Time) bool {
	if !rec.Status.editable() {
		return false
	}
	now := PeriodOf(asOf)
	return rec.Quarter == now.Quarter && rec.Year == now.Year
}
