// internal/util/clock.go
// Abstraksi waktu untuk memudahkan testing (timestamp batch, jadwal worker)

package util

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock selalu mengembalikan waktu yang sama.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
