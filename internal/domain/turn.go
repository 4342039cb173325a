package domain

// ChatTurn is one completed assistant response, whether it arrived over
// REST or as the final frame of a streaming exchange.
type ChatTurn struct {
	SessionID string
	Response  string
	Artifacts []Artifact
	Tools     []string
}
