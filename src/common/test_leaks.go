package common

import (
	"testing"

	"go.uber.org/goleak"
)

// libraryGoroutines are started by package init functions of the libp2p
// dependencies and live as long as the process.
var libraryGoroutines = []goleak.Option{
	goleak.IgnoreAnyFunction("github.com/ipfs/go-log/writer.(*MirrorWriter).logRoutine"),
	goleak.IgnoreAnyFunction("go.opencensus.io/stats/view.(*worker).start"),
}

// VerifyNoLeaks fails t if goroutines other than the long-lived library ones
// are still running. Use it with defer at the top of a test.
func VerifyNoLeaks(t testing.TB, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, append(append([]goleak.Option{}, libraryGoroutines...), opts...)...)
}
