package portal

import (
	"attendqr/lib/restyutil"
	"attendqr/lib/telemetry"
)

var tracer = telemetry.Tracer("attendqr.lib.scrapers.portal")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput makes every session created afterwards dump its
// request/response pairs to out.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
