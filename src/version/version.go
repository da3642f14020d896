package version

// Flag contains extra info about the version. It is helpul for tracking
// versions while developing. It should always by empty on the master branch.
// This will be inforced in a continuous integration test.
const Flag = "develop"

// ProtocolVersion is the version of the wire protocols. It only changes when
// the message envelope or the protocol identifiers change, so nodes running
// different releases can still talk to each other.
const ProtocolVersion = "1.0.0"

var (
	// Version is The full version string
	Version = "0.1.0"

	// GitCommit is set with --ldflags "-X main.gitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if Flag != "" {
		Version += "-" + Flag
	}

	if len(GitCommit) >= 8 {
		Version += "-" + GitCommit[:8]
	}
}

// UserAgent is advertised to peers through the identify protocol.
func UserAgent() string {
	return "gossipnet/" + Version
}
