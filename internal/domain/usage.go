package domain

// UsageCounters are running totals for one session. They only grow.
type UsageCounters struct {
	Messages int
	Tokens   int
}

func (u *UsageCounters) Record(tokens int) {
	if tokens < 0 {
		tokens = 0
	}
	u.Messages++
	u.Tokens += tokens
}
