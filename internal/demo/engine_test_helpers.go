package demo

import (
	"time"

	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/timectrl"
)

// testEpoch is the manual clock's starting instant in engine tests.
var testEpoch = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// NewManualEngine wires an engine to a manual clock and ticker so callers
// can step the script deterministically.
func NewManualEngine(opts ...EngineOption) (*Engine, *timectrl.ManualController) {
	mc := timectrl.NewManualController(testEpoch)
	base := []EngineOption{WithClock(mc), WithTicker(mc)}
	return NewEngine(logging.Noop(), append(base, opts...)...), mc
}
