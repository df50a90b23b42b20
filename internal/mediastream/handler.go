package mediastream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adya14/AuraAI/internal/audio"
	"github.com/adya14/AuraAI/internal/interview"
	"github.com/adya14/AuraAI/internal/transcript"
)

// Transcriber turns a WAV-wrapped utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Synthesizer turns text into PCM16 little-endian mono bytes at SampleRate().
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Engine drives the interview for one stream.
type Engine interface {
	Begin(id, role, jobDescription string) (string, error)
	Advance(ctx context.Context, id, utterance string) (interview.Reply, error)
	End(id string)
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Twilio media streams do not send a browser origin
		return true
	},
}

// streamFrame is the JSON envelope for both directions of the media stream.
type streamFrame struct {
	Event     string      `json:"event"`
	StreamSid string      `json:"streamSid,omitempty"`
	Start     *startFrame `json:"start,omitempty"`
	Media     *mediaFrame `json:"media,omitempty"`
}

type startFrame struct {
	StreamSid string `json:"streamSid"`
}

type mediaFrame struct {
	Payload string `json:"payload"`
	Chunk   int    `json:"chunk,omitempty"`
}

// Handler bridges a duplex audio stream to the interview engine: inbound
// frames carry base64 µ-law candidate audio, outbound frames carry the
// synthesized interviewer reply in the same encoding.
type Handler struct {
	engine         Engine
	transcriber    Transcriber
	synthesizer    Synthesizer
	role           string
	jobDescription string
	// SynthesisRate is the PCM rate the synthesizer produces; replies are
	// downsampled from it to the 8kHz carrier rate.
	SynthesisRate  int
	externalCallTO time.Duration
}

func NewHandler(engine Engine, transcriber Transcriber, synthesizer Synthesizer, synthesisRate int, role, jobDescription string) *Handler {
	return &Handler{
		engine:         engine,
		transcriber:    transcriber,
		synthesizer:    synthesizer,
		role:           role,
		jobDescription: jobDescription,
		SynthesisRate:  synthesisRate,
		externalCallTO: 15 * time.Second,
	}
}

// ServeWS upgrades the request and processes one call's media stream until a
// stop frame, a hangup, or a read error. Frames are handled strictly in
// arrival order; unrecognized events are skipped.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("mediastream: upgrade error: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var streamSid string
	var outChunk int
	defer func() {
		if streamSid != "" {
			h.engine.End(streamSid)
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("mediastream %s: read error: %v", streamSid, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var frame streamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("mediastream %s: malformed frame skipped: %v", streamSid, err)
			continue
		}

		switch frame.Event {
		case "start":
			if frame.Start != nil && frame.Start.StreamSid != "" {
				streamSid = frame.Start.StreamSid
			} else {
				streamSid = frame.StreamSid
			}
			if streamSid == "" {
				log.Printf("mediastream: start frame without streamSid")
				return
			}
			greeting, err := h.engine.Begin(streamSid, h.role, h.jobDescription)
			if err != nil {
				log.Printf("mediastream %s: begin failed: %v", streamSid, err)
				return
			}
			if !h.speak(conn, streamSid, greeting, &outChunk) {
				return
			}

		case "media":
			if streamSid == "" || frame.Media == nil {
				continue
			}
			if h.handleUtterance(r.Context(), conn, streamSid, frame.Media.Payload, &outChunk) {
				return
			}

		case "stop":
			log.Printf("mediastream %s: stream stopped by carrier", streamSid)
			return

		default:
			// tolerate unknown events (e.g. mark, dtmf)
		}
	}
}

// handleUtterance processes one inbound audio payload. It reports whether the
// call is over and the channel should close.
func (h *Handler) handleUtterance(ctx context.Context, conn *websocket.Conn, streamSid, payload string, outChunk *int) (done bool) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		log.Printf("mediastream %s: invalid media payload skipped: %v", streamSid, err)
		return false
	}
	pcm, err := audio.DecodeCarrier(raw)
	if err != nil {
		log.Printf("mediastream %s: undecodable audio skipped: %v", streamSid, err)
		return false
	}

	tctx, cancel := context.WithTimeout(ctx, h.externalCallTO)
	text, err := h.transcriber.Transcribe(tctx, audio.WAVFromPCM16(pcm, audio.CarrierSampleRate))
	cancel()
	if err != nil && !errors.Is(err, transcript.ErrNoSpeech) {
		log.Printf("mediastream %s: transcription failed, closing call: %v", streamSid, err)
		h.speak(conn, streamSid, interview.FallbackUtterance, outChunk)
		return true
	}

	reply, err := h.engine.Advance(ctx, streamSid, text)
	if err != nil {
		log.Printf("mediastream %s: advance failed, closing call: %v", streamSid, err)
		h.speak(conn, streamSid, interview.FallbackUtterance, outChunk)
		return true
	}
	if !h.speak(conn, streamSid, reply.Text, outChunk) {
		return true
	}
	return reply.Hangup
}

// speak synthesizes text, re-encodes it for the carrier, and sends it as an
// outbound media frame. It reports whether the channel is still usable.
func (h *Handler) speak(conn *websocket.Conn, streamSid, text string, outChunk *int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), h.externalCallTO)
	defer cancel()

	pcmBytes, err := h.synthesizer.Synthesize(ctx, text)
	if err != nil {
		log.Printf("mediastream %s: synthesis failed: %v", streamSid, err)
		return false
	}
	encoded, err := audio.EncodeForCarrier(audio.BytesToPCM16(pcmBytes), h.SynthesisRate)
	if err != nil {
		log.Printf("mediastream %s: carrier encode failed: %v", streamSid, err)
		return false
	}

	*outChunk++
	frame := streamFrame{
		Event:     "media",
		StreamSid: streamSid,
		Media: &mediaFrame{
			Payload: base64.StdEncoding.EncodeToString(encoded),
			Chunk:   *outChunk,
		},
	}
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("mediastream %s: write error: %v", streamSid, err)
		return false
	}
	return true
}
