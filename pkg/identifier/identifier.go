// Package identifier provides prefixed, globally-unique identifier generation
// for every entity in the system. All IDs are opaque strings; callers may
// supply their own Generator when deterministic IDs are needed (tests).
package identifier

import "github.com/google/uuid"

// Entity prefixes. A prefixed ID looks like "nd-6f1c9b2e...".
const (
	PrefixNode        = "nd"
	PrefixConnection  = "cnc"
	PrefixWorkspace   = "wks"
	PrefixWorkflow    = "wf"
	PrefixJob         = "jb"
	PrefixStep        = "stp"
	PrefixWorkflowRun = "wfr"
	PrefixJobRun      = "jbr"
	PrefixStepRun     = "stpr"
	PrefixGeneration  = "gen"
)

// Generator produces a new unique ID for the given entity prefix.
type Generator func(prefix string) string

// NewUUIDGenerator returns the default Generator backed by random UUIDs.
func NewUUIDGenerator() Generator {
	return func(prefix string) string {
		return prefix + "-" + uuid.New().String()
	}
}

// Default is the generator used when a component is constructed without one.
var Default = NewUUIDGenerator()
