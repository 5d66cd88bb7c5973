package timezone

import (
	"fmt"
	"time"
)

// Resolve returns the IANA location called name. An empty name or "Local"
// is the host's zone.
//
// Captures are named after the portal's wall clock, so servers that run in
// another zone should set this explicitly.
func Resolve(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return location, nil
}
