// Package ws terminates the streaming analysis connections: one WebSocket
// per presenter, JSON envelopes in both directions.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/edgecoach/engine/internal/analysis"
	"github.com/edgecoach/engine/internal/coach"
	"github.com/edgecoach/engine/internal/landmark"
	"github.com/edgecoach/engine/internal/metrics"
	"github.com/edgecoach/engine/internal/session"
	"github.com/edgecoach/engine/internal/transcribe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared backends for all analysis sessions.
type HandlerConfig struct {
	Registry    *session.Registry
	Extractor   landmark.Extractor
	Transcriber transcribe.Transcriber
	Coach       *coach.Coach

	MaxConcurrent int
	// FrameQueueCap bounds pending frames per session; the oldest pending
	// frame is dropped when a newer one arrives on a full queue.
	FrameQueueCap int
	// FrameBudget bounds one frame's decode and detection time.
	FrameBudget time.Duration
	// IdleTimeout closes connections with no inbound traffic. Zero
	// disables the deadline.
	IdleTimeout time.Duration
	// ProtocolErrorBudget is how many malformed or unknown messages a
	// connection survives before it is closed.
	ProtocolErrorBudget int
}

// Handler manages WebSocket analysis sessions with admission control.
type Handler struct {
	cfg HandlerConfig
	sem chan struct{}
}

// NewHandler creates a WebSocket handler with shared backends and a concurrency limit.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 100
	}
	if cfg.FrameQueueCap <= 0 {
		cfg.FrameQueueCap = 4
	}
	if cfg.FrameBudget <= 0 {
		cfg.FrameBudget = 2 * time.Second
	}
	if cfg.ProtocolErrorBudget <= 0 {
		cfg.ProtocolErrorBudget = 5
	}
	return &Handler{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
	}
}

// ServeHTTP upgrades the connection and runs the analysis session.
// Returns 503 at max concurrent session capacity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	default:
		http.Error(w, "at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	sess := h.cfg.Registry.GetOrCreate(sessionID)
	defer h.cfg.Registry.Remove(sessionID)

	slog.Info("analysis session started", "session_id", sessionID, "remote", r.RemoteAddr)
	h.runSession(conn, sess)
	slog.Info("analysis session ended", "session_id", sessionID)
}

type frameJob struct {
	payload   string
	timestamp float64
	reset     bool
}

func (h *Handler) runSession(conn *websocket.Conn, sess *session.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := newMessageSender(conn)

	frames := make(chan frameJob, h.cfg.FrameQueueCap)
	audioChunks := make(chan frameJob, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.frameWorker(ctx, sess, frames, send)
	}()
	go func() {
		defer wg.Done()
		h.audioWorker(ctx, sess, audioChunks, send)
	}()

	h.readLoop(ctx, conn, sess, frames, audioChunks, send)

	close(frames)
	close(audioChunks)
	cancel()
	wg.Wait()
}

// readLoop decodes inbound envelopes and dispatches them. Frame and audio
// payloads go through bounded queues so a slow pipeline never blocks the
// network read; read-only control messages are answered inline, while
// resets queue behind pending frames to keep per-session arrival order.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session, frames, audioChunks chan frameJob, send sendFunc) {
	protocolErrors := 0

	for {
		if h.cfg.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "session_id", sess.ID, "error", err)
			return
		}

		var msg clientMessage
		if err = json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			protocolErrors++
			send(serverMessage{Type: msgError, Message: "malformed message envelope"})
			if protocolErrors >= h.cfg.ProtocolErrorBudget {
				slog.Warn("protocol error budget exhausted", "session_id", sess.ID)
				return
			}
			continue
		}

		switch msg.Type {
		case msgVideoFrame:
			if dropped := enqueueDropOldest(frames, frameJob{payload: msg.Frame, timestamp: msg.Timestamp}); dropped {
				metrics.FramesDropped.Inc()
			}
		case msgAudioChunk:
			enqueueDropOldest(audioChunks, frameJob{payload: msg.Audio, timestamp: msg.Timestamp})
		case msgGetStats:
			send(serverMessage{Type: msgStats, Data: sess.Stats(), Timestamp: nowSeconds()})
		case msgResetSession:
			// Reset mutates session state, so it rides the frame queue
			// behind any frames that arrived before it.
			enqueueDropOldest(frames, frameJob{reset: true})
		case msgPing:
			sess.Touch()
			send(serverMessage{Type: msgPong, Timestamp: nowSeconds()})
		case msgGetFeedback:
			go h.sendFeedback(ctx, sess, send)
		default:
			protocolErrors++
			send(serverMessage{Type: msgError, Message: "unknown message type: " + msg.Type})
			if protocolErrors >= h.cfg.ProtocolErrorBudget {
				slog.Warn("protocol error budget exhausted", "session_id", sess.ID, "type", msg.Type)
				return
			}
		}
	}
}

func (h *Handler) frameWorker(ctx context.Context, sess *session.Session, frames <-chan frameJob, send sendFunc) {
	for job := range frames {
		if job.reset {
			sess.Reset()
			send(serverMessage{Type: msgSessionReset, Message: "session reset", Timestamp: nowSeconds()})
			continue
		}
		h.processFrame(ctx, sess, job, send)
	}
}

// processFrame runs decode, detection, and scoring for one frame. Decode
// failures and budget overruns are per-frame errors; a dead extractor
// degrades to a zero-detection observation so scoring continues.
func (h *Handler) processFrame(ctx context.Context, sess *session.Session, job frameJob, send sendFunc) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()

	fctx, cancel := context.WithTimeout(ctx, h.cfg.FrameBudget)
	defer cancel()

	img, err := landmark.DecodeFrame(job.payload)
	if err != nil {
		metrics.DecodeErrors.Inc()
		send(serverMessage{Type: msgError, Message: err.Error()})
		return
	}

	det, err := h.cfg.Extractor.Detect(fctx, img)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			send(serverMessage{Type: msgError, Message: "frame processing budget exceeded"})
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Warn("landmark extractor unavailable, scoring zero detections", "session_id", sess.ID, "error", err)
		det = &landmark.Detections{}
	}

	m := sess.ScoreFrame(det, job.timestamp)

	metrics.FramesProcessed.Inc()
	metrics.FrameDuration.Observe(time.Since(start).Seconds())

	send(serverMessage{Type: msgFeatures, Data: m, Timestamp: nowSeconds()})
}

func (h *Handler) audioWorker(ctx context.Context, sess *session.Session, chunks <-chan frameJob, send sendFunc) {
	for job := range chunks {
		if ctx.Err() != nil {
			continue
		}
		if h.cfg.Transcriber == nil {
			send(serverMessage{Type: msgError, Message: "transcription not configured"})
			continue
		}

		chunk, err := transcribe.DecodeChunk(job.payload)
		if err != nil {
			send(serverMessage{Type: msgError, Message: err.Error()})
			continue
		}

		res, err := h.cfg.Transcriber.Transcribe(ctx, chunk)
		if err != nil {
			slog.Warn("transcription failed", "session_id", sess.ID, "error", err)
			send(serverMessage{Type: msgError, Message: "transcription unavailable"})
			continue
		}

		sess.AppendTranscript(res.Text)
		send(serverMessage{Type: msgTranscript, Data: res, Timestamp: nowSeconds()})
	}
}

// sendFeedback runs off the read loop; coaching can take seconds.
func (h *Handler) sendFeedback(ctx context.Context, sess *session.Session, send sendFunc) {
	stats := sess.Stats()
	transcript := sess.Transcript()
	report := analysis.AnalyzeText(transcript)

	in := &coach.Input{
		Transcript: transcript,
		Stats:      &stats,
		Vices:      report.Repetitions,
	}

	var fb *coach.Feedback
	if h.cfg.Coach != nil {
		fb, _ = h.cfg.Coach.Generate(ctx, in, nil)
	} else {
		fb = coach.ComposeFallback(in)
	}
	if ctx.Err() != nil {
		return
	}

	send(serverMessage{Type: msgFeedback, Data: fb, Timestamp: nowSeconds()})
}

type sendFunc func(msg serverMessage)

func newMessageSender(conn *websocket.Conn) sendFunc {
	var mu sync.Mutex
	return func(msg serverMessage) {
		mu.Lock()
		defer mu.Unlock()

		jsonBytes, err := json.Marshal(msg)
		if err != nil {
			return
		}
		if err = conn.WriteMessage(websocket.TextMessage, jsonBytes); err != nil {
			slog.Error("write message", "type", msg.Type, "error", err)
		}
	}
}

// enqueueDropOldest offers v to q, evicting the oldest pending element
// when the queue is full. Reports whether anything was dropped.
func enqueueDropOldest[T any](q chan T, v T) bool {
	select {
	case q <- v:
		return false
	default:
	}

	dropped := false
	select {
	case <-q:
		dropped = true
	default:
	}
	select {
	case q <- v:
	default:
		dropped = true
	}
	return dropped
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
