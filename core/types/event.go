package types

// Event is the wire-level representation of a state change emitted by the
// vault engine, consumed by indexers and the gateway event log.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
