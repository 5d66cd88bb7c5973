package portal

import "errors"

var (
	// ErrTransport means the request never produced a response (refused, reset, timed out).
	ErrTransport = errors.New("portal request failed")
	// ErrStatus means the portal responded with a non-2xx status.
	ErrStatus = errors.New("portal returned unexpected status")
	// ErrParse covers unparsable html, image sources and base64 payloads.
	ErrParse = errors.New("failed to parse portal content")
	// ErrPersist means an image could not be written to the output directory.
	ErrPersist = errors.New("failed to persist image")
	// ErrLoginNotFound means neither the main page nor any login candidate looked like a login page.
	ErrLoginNotFound = errors.New("could not find a login page")
)
