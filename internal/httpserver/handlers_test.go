package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/adya14/AuraAI/internal/interview"
)

type fakeDialer struct {
	to   string
	doc  string
	sid  string
	err  error
	dial int
}

func (f *fakeDialer) PlaceCall(to, twiml string) (string, error) {
	f.dial++
	f.to, f.doc = to, twiml
	if f.err != nil {
		return "", f.err
	}
	if f.sid == "" {
		f.sid = "CA123"
	}
	return f.sid, nil
}

type fakeResponder struct {
	n int
}

func (f *fakeResponder) Respond(ctx context.Context, history []interview.Turn, utterance, role, jobDescription string, requestRating bool) (string, error) {
	if requestRating {
		return "Candidate Rating: 7/10", nil
	}
	f.n++
	return fmt.Sprintf("Question %d?", f.n), nil
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeDialer, interview.Store) {
	t.Helper()
	store := interview.NewMemoryStore()
	engine := interview.NewEngine(store, &fakeResponder{}, 2, time.Second)
	dialer := &fakeDialer{}
	h := NewHandlers(engine, dialer, nil, Options{
		Role:            "Software Engineer",
		JobDescription:  "backend role",
		RecipientNumber: "+15550002222",
		PublicBaseURL:   "https://example.ngrok.app",
		TwilioAuthToken: "token",
	})
	e := New()
	h.Register(e)
	return e, dialer, store
}

func postForm(e *echo.Echo, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoot_Liveness(t *testing.T) {
	e, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "running") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMakeCall_UsesConfiguredRecipient(t *testing.T) {
	e, dialer, store := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/make-call", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if dialer.to != "+15550002222" {
		t.Fatalf("dialed %q", dialer.to)
	}
	if !strings.Contains(dialer.doc, "Gather") || !strings.Contains(dialer.doc, "Askara") {
		t.Fatalf("initial TwiML missing gather/greeting: %s", dialer.doc)
	}
	if !strings.Contains(rec.Body.String(), "CA123") {
		t.Fatalf("response should carry call sid: %s", rec.Body.String())
	}
	if _, err := store.Get("CA123"); err != nil {
		t.Fatalf("session not created: %v", err)
	}
}

func TestMakeCall_OverridesRecipient(t *testing.T) {
	e, dialer, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/make-call", strings.NewReader(`{"recipientNumber":"+15559998888"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if dialer.to != "+15559998888" {
		t.Fatalf("dialed %q", dialer.to)
	}
}

func TestMakeCall_DialerError(t *testing.T) {
	store := interview.NewMemoryStore()
	engine := interview.NewEngine(store, &fakeResponder{}, 2, time.Second)
	dialer := &fakeDialer{err: errors.New("twilio down")}
	h := NewHandlers(engine, dialer, nil, Options{RecipientNumber: "+1555"})
	e := New()
	h.Register(e)

	req := httptest.NewRequest(http.MethodPost, "/make-call", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Fatalf("expected error payload, got %s", rec.Body.String())
	}
}

func TestProcessResponse_MissingCallSid(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec := postForm(e, "/process-response", url.Values{"SpeechResult": {"hello"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 error document, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Sorry, an error occurred.") || !strings.Contains(body, "Hangup") {
		t.Fatalf("expected error markup, got %s", body)
	}
}

func TestProcessResponse_UnknownSession(t *testing.T) {
	e, _, _ := newTestServer(t)
	rec := postForm(e, "/process-response", url.Values{"CallSid": {"CA404"}, "SpeechResult": {"hi"}})
	if !strings.Contains(rec.Body.String(), "Sorry, an error occurred.") {
		t.Fatalf("expected error markup, got %s", rec.Body.String())
	}
}

func TestProcessResponse_NoSpeechReprompts(t *testing.T) {
	e, _, store := newTestServer(t)
	if _, err := store.Create("CA1", "SDE", "jd"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := postForm(e, "/process-response", url.Values{"CallSid": {"CA1"}})
	body := rec.Body.String()
	if !strings.Contains(body, "Gather") || strings.Contains(body, "Hangup") {
		t.Fatalf("expected gather retry markup, got %s", body)
	}
	if !strings.Contains(body, "repeat") {
		t.Fatalf("expected retry prompt, got %s", body)
	}
	sess, _ := store.Get("CA1")
	if sess.QuestionCount != 0 || sess.Phase != interview.PhaseIntroduction {
		t.Fatalf("no-speech turn mutated session: %+v", sess)
	}
}

// Drives the webhook through a whole interview: two questions, the QnA turn,
// then a farewell with hangup and session teardown.
func TestProcessResponse_FullCall(t *testing.T) {
	e, _, store := newTestServer(t)
	if _, err := store.Create("CA1", "SDE", "jd"); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := postForm(e, "/process-response", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"I am a backend engineer"}})
	if !strings.Contains(rec.Body.String(), "Question 1?") {
		t.Fatalf("turn 1 body: %s", rec.Body.String())
	}

	rec = postForm(e, "/process-response", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"I like distributed systems"}})
	body := rec.Body.String()
	if !strings.Contains(body, "Do you have any questions for me?") {
		t.Fatalf("turn 2 should invite questions: %s", body)
	}
	if strings.Contains(body, "Hangup") {
		t.Fatalf("turn 2 must not hang up: %s", body)
	}

	rec = postForm(e, "/process-response", url.Values{"CallSid": {"CA1"}, "SpeechResult": {"No thanks"}})
	body = rec.Body.String()
	if !strings.Contains(body, "That concludes our interview") || !strings.Contains(body, "Hangup") {
		t.Fatalf("final turn should conclude and hang up: %s", body)
	}

	// session is torn down after hangup
	if _, err := store.Get("CA1"); !errors.Is(err, interview.ErrSessionNotFound) {
		t.Fatalf("expected session deleted, got %v", err)
	}
}
