package task

import "time"

// Deferral is a scheduler-recognized request from a work function to be
// retried later. It is a returned value, not an error: a work function
// that wants another attempt after thirty seconds returns
//
//	return task.Defer(30 * time.Second), nil
//
// and the run loop marks the task delayed instead of failed.
type Deferral struct {
	wake time.Time
}

// Defer builds a Deferral that becomes retry-eligible after d.
func Defer(d time.Duration) *Deferral {
	return &Deferral{wake: time.Now().Add(d)}
}

// DeferUntil builds a Deferral with an absolute wake time.
func DeferUntil(wake time.Time) *Deferral {
	return &Deferral{wake: wake}
}

// Wake returns the absolute time at which the deferral expires.
func (d *Deferral) Wake() time.Time { return d.wake }

// Remaining returns the time left until the wake time. A value <= 0 means
// the owning task is eligible for retry.
func (d *Deferral) Remaining() time.Duration {
	return time.Until(d.wake)
}

// Expired reports whether the wake time has passed.
func (d *Deferral) Expired() bool {
	return d.Remaining() <= 0
}
