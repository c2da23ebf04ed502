package webhook

import "strings"

type Category string

const (
	CategoryProof      Category = "proof"
	CategoryConnection Category = "connection"
	CategoryCredential Category = "credential"
	CategoryIgnored    Category = "ignored"
)

// proofPhaseStates arrive on the connection type but belong to a proof.
var proofPhaseStates = map[string]struct{}{
	"request-sent":          {},
	"presentation-received": {},
	"done":                  {},
	"abandoned":             {},
}

// Classify picks the route for e. Type names compare case-insensitively.
func Classify(e Event) Category {
	switch strings.ToLower(e.Type) {
	case "proof", "proofrequest":
		return CategoryProof
	case "connection":
		if _, ok := proofPhaseStates[strings.ToLower(e.State)]; ok {
			return CategoryProof
		}
		return CategoryConnection
	case "credential":
		return CategoryCredential
	default:
		return CategoryIgnored
	}
}
