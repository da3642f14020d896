// +build !unit

package version

import (
	"strings"
	"testing"
)

// TestFlagEmpty fails if version.Flag is not empty. We use this internally to
// enforce an empty flag on the master branch.
func TestFlagEmpty(t *testing.T) {
	if len(Flag) > 0 {
		t.Skipf("Version Flag is not empty: %s", Flag)
	}
}

func TestUserAgent(t *testing.T) {
	if !strings.HasPrefix(UserAgent(), "gossipnet/"+"0.1.0") {
		t.Fatalf("unexpected user agent %s", UserAgent())
	}
}
