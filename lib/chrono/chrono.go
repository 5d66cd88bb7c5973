package chrono

import "time"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime is the constructor of StandardTime, a nil location means time.Local.
func NewStandardTime(location *time.Location) StandardTime {
	if location == nil {
		location = time.Local
	}
	return StandardTime{location: location}
}

func (s StandardTime) Now() time.Time {
	if s.location == nil {
		return time.Now()
	}
	return time.Now().In(s.location)
}

// FixedTime always returns the same instant, used in tests.
type FixedTime time.Time

func (f FixedTime) Now() time.Time {
	return time.Time(f)
}
