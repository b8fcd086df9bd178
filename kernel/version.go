package kernel

import "fmt"

// Bumped manually; there is no automated release process for this module.
const (
	VersionMajor = 1
	VersionMinor = 0
	VersionRevision = 0
)

// Version returns the module's dotted version string, used in the
// signature tools send on their HTTP/API surfaces and print with -v.
func Version() string {
	return fmt.Sprintf("%v.%v.%v", VersionMajor, VersionMinor, VersionRevision)
}
