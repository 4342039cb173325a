package stream

// Outbound frame types. One frame per WebSocket message, tagged by
// "type"; the payload fields below form the full wire schema.
const (
	frameText        = "text"
	frameSpeechStart = "speech_start"
	frameSpeechAudio = "speech_audio"
	frameSpeechEnd   = "speech_end"
	frameCameraFrame = "camera_frame"
)

// Inbound frame types, a closed union. Unknown tags are dropped.
const (
	frameStatus         = "status"
	frameTranscript     = "transcript"
	frameCameraAnalysis = "camera_analysis"
	frameComplete       = "complete"
	frameError          = "error"
)

type outboundFrame struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
	Frame string `json:"frame,omitempty"`
}

type inboundFrame struct {
	Type        string           `json:"type"`
	Message     string           `json:"message,omitempty"`
	Text        string           `json:"text,omitempty"`
	IsFinal     bool             `json:"is_final,omitempty"`
	Description string           `json:"description,omitempty"`
	Response    *inboundResponse `json:"response,omitempty"`
	Detail      string           `json:"detail,omitempty"`
}

type inboundResponse struct {
	SessionID string            `json:"session_id"`
	Response  string            `json:"response"`
	Artifacts []inboundArtifact `json:"artifacts"`
	ToolsUsed []string          `json:"tools_used"`
}

type inboundArtifact struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}
