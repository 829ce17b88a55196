package credits

import "time"

// Ledger is a user's credit allowance for the current period.
type Ledger struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Remaining returns the credits left in the period, never negative.
func (l Ledger) Remaining() int {
	if r := l.Limit - l.Used; r > 0 {
		return r
	}
	return 0
}

// Plan is the default allowance granted to new users.
type Plan struct {
	Name   string
	Limit  int
	Period time.Duration
}

// DefaultPlan is Starter: 10 credits per week.
func DefaultPlan() Plan {
	return Plan{Name: "Starter", Limit: 10, Period: 7 * 24 * time.Hour}
}

func (p Plan) fresh(now time.Time) Ledger {
	return Ledger{Plan: p.Name, Limit: p.Limit, ResetsAt: now.Add(p.Period)}
}

// rollover starts a new period once ResetsAt has passed.
func (p Plan) rollover(l Ledger, now time.Time) (Ledger, bool) {
	if now.Before(l.ResetsAt) {
		return l, false
	}
	l.Used = 0
	l.ResetsAt = now.Add(p.Period)
	return l, true
}
