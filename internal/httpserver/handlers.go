package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go/twiml"

	"github.com/adya14/AuraAI/internal/interview"
	mw "github.com/adya14/AuraAI/internal/middleware"
)

// InterviewEngine is the conversational core driving every call.
type InterviewEngine interface {
	Begin(id, role, jobDescription string) (string, error)
	Advance(ctx context.Context, id, utterance string) (interview.Reply, error)
	End(id string)
}

// Dialer places outbound calls.
type Dialer interface {
	PlaceCall(to, twiml string) (string, error)
}

// StreamHandler serves the duplex media-stream transport.
type StreamHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Options carries the call-placement configuration the handlers need.
type Options struct {
	Role            string
	JobDescription  string
	RecipientNumber string
	PublicBaseURL   string
	TwilioAuthToken string
	// VerifySignatures rejects webhook requests without a valid
	// X-Twilio-Signature. Disabled in tests.
	VerifySignatures bool
}

type Handlers struct {
	engine InterviewEngine
	dialer Dialer
	stream StreamHandler
	opts   Options
}

func NewHandlers(engine InterviewEngine, dialer Dialer, stream StreamHandler, opts Options) Handlers {
	return Handlers{engine: engine, dialer: dialer, stream: stream, opts: opts}
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/", h.root)
	e.POST("/make-call", h.makeCall)
	e.POST("/process-response", h.processResponse,
		mw.TwilioForm(h.opts.TwilioAuthToken, h.opts.PublicBaseURL, h.opts.VerifySignatures))
	if h.stream != nil {
		e.GET("/media-stream", func(c echo.Context) error {
			h.stream.ServeWS(c.Response(), c.Request())
			return nil
		})
	}
}

func (h Handlers) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Twilio AI interview service is running"})
}

type makeCallRequest struct {
	RecipientNumber string `json:"recipientNumber"`
}

type makeCallResponse struct {
	Message string `json:"message,omitempty"`
	CallSid string `json:"callSid,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h Handlers) makeCall(c echo.Context) error {
	var req makeCallRequest
	// body is optional; fall back to the configured recipient
	_ = c.Bind(&req)
	to := strings.TrimSpace(req.RecipientNumber)
	if to == "" {
		to = h.opts.RecipientNumber
	}

	greeting := interview.Greeting(h.opts.Role)
	connecting := &twiml.VoiceSay{Message: "Connecting you to the AI."}
	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        h.opts.PublicBaseURL + "/process-response",
		Method:        "POST",
		Timeout:       "5",
		InnerElements: []twiml.Element{&twiml.VoiceSay{Message: greeting}},
	}
	doc, err := twiml.Voice([]twiml.Element{connecting, gather})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, makeCallResponse{Error: "failed to build TwiML"})
	}

	callSid, err := h.dialer.PlaceCall(to, doc)
	if err != nil {
		c.Echo().Logger.Errorf("make-call: %v", err)
		return c.JSON(http.StatusInternalServerError, makeCallResponse{Error: err.Error()})
	}
	if _, err := h.engine.Begin(callSid, h.opts.Role, h.opts.JobDescription); err != nil {
		c.Echo().Logger.Errorf("make-call: session create failed for %s: %v", callSid, err)
		return c.JSON(http.StatusInternalServerError, makeCallResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, makeCallResponse{Message: "Call initiated", CallSid: callSid})
}

func (h Handlers) processResponse(c echo.Context) error {
	params, ok := c.Get("twilioParams").(map[string]string)
	if !ok {
		return errorTwiML(c)
	}

	callSid := params["CallSid"]
	if callSid == "" {
		c.Echo().Logger.Warn("process-response: missing CallSid")
		return errorTwiML(c)
	}

	reply, err := h.engine.Advance(c.Request().Context(), callSid, params["SpeechResult"])
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) || errors.Is(err, interview.ErrSessionClosed) {
			c.Echo().Logger.Warnf("process-response: %v (callSid=%s)", err, callSid)
			return errorTwiML(c)
		}
		c.Echo().Logger.Errorf("process-response: %v", err)
		return errorTwiML(c)
	}

	if reply.Hangup {
		h.engine.End(callSid)
		return hangupTwiML(c, reply.Text)
	}
	return gatherTwiML(c, reply.Text, h.opts.PublicBaseURL)
}

// gatherTwiML speaks text and collects the next utterance.
func gatherTwiML(c echo.Context, text, baseURL string) error {
	say := &twiml.VoiceSay{Message: text}
	gather := &twiml.VoiceGather{
		Input:   "speech",
		Action:  baseURL + "/process-response",
		Method:  "POST",
		Timeout: "10",
	}
	return respondTwiML(c, []twiml.Element{say, gather})
}

// hangupTwiML speaks text and terminates the call.
func hangupTwiML(c echo.Context, text string) error {
	say := &twiml.VoiceSay{Message: text}
	return respondTwiML(c, []twiml.Element{say, &twiml.VoiceHangup{}})
}

// errorTwiML is the generic error document: a spoken apology, then hangup.
// Twilio only executes it on a 200 response.
func errorTwiML(c echo.Context) error {
	say := &twiml.VoiceSay{Message: interview.FallbackUtterance}
	return respondTwiML(c, []twiml.Element{say, &twiml.VoiceHangup{}})
}

func respondTwiML(c echo.Context, elements []twiml.Element) error {
	doc, err := twiml.Voice(elements)
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to build TwiML")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml")
	return c.String(http.StatusOK, doc)
}
