package booking

import "time"

// FeePolicy computes the penalty for a late customer cancellation.
// Cancelling inside the cutoff window costs Percent of the booking price;
// outside it the cancellation is free.
type FeePolicy struct {
	Cutoff  time.Duration
	Percent int
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Cutoff:  24 * time.Hour,
		Percent: 50,
	}
}

// Fee returns the cancellation fee in cents. A start time already in the past
// is trivially inside the cutoff, so cancelling after the appointment time
// still costs the fee.
func (p FeePolicy) Fee(price int64, startTime, now time.Time) int64 {
	if startTime.Sub(now) < p.Cutoff {
		return price * int64(p.Percent) / 100
	}
	return 0
}
