package ws

// Inbound message types.
const (
	msgVideoFrame   = "video_frame"
	msgAudioChunk   = "audio_chunk"
	msgGetStats     = "get_stats"
	msgGetFeedback  = "get_feedback"
	msgResetSession = "reset_session"
	msgPing         = "ping"
)

// Outbound message types.
const (
	msgFeatures     = "features"
	msgStats        = "stats"
	msgTranscript   = "transcript"
	msgFeedback     = "feedback"
	msgSessionReset = "session_reset"
	msgPong         = "pong"
	msgError        = "error"
)

// clientMessage is the envelope for every inbound message. Fields beyond
// type are populated per message kind.
type clientMessage struct {
	Type      string  `json:"type"`
	Frame     string  `json:"frame,omitempty"`
	Audio     string  `json:"audio,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// serverMessage is the envelope for every outbound message.
type serverMessage struct {
	Type      string  `json:"type"`
	Data      any     `json:"data,omitempty"`
	Message   string  `json:"message,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}
