package interview

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	greetingTemplate = "Hi, I am Askara, your AI interviewer. I will be conducting your interview today for the %s role. Let's start with an introduction. Tell me all about yourself."
	qnaPrompt        = "Thank you for your time. Do you have any questions for me?"
	closingLine      = "That concludes our interview. Have a great day!"
	retryPrompt      = "I didn't catch that. Could you please repeat?"
	// FallbackUtterance is spoken before hanging up when a turn fails.
	FallbackUtterance = "Sorry, an error occurred."
)

// DefaultMaxQuestions matches the product's fixed-length interview format.
const DefaultMaxQuestions = 2

// DefaultResponderTimeout bounds every external generation call so a turn can
// never hang the call indefinitely.
const DefaultResponderTimeout = 15 * time.Second

// Engine drives the interview script for all live sessions. It is the only
// component that mutates session state.
type Engine struct {
	store        Store
	responder    Responder
	maxQuestions int
	timeout      time.Duration
}

func NewEngine(store Store, responder Responder, maxQuestions int, timeout time.Duration) *Engine {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	if timeout <= 0 {
		timeout = DefaultResponderTimeout
	}
	return &Engine{store: store, responder: responder, maxQuestions: maxQuestions, timeout: timeout}
}

// Greeting is the fixed interviewer opening for the given role. It is spoken
// before any candidate input exists and is not recorded in history.
func Greeting(role string) string {
	return fmt.Sprintf(greetingTemplate, role)
}

// Begin creates a session for a newly placed call and returns the greeting to
// speak.
func (e *Engine) Begin(id, role, jobDescription string) (string, error) {
	sess, err := e.store.Create(id, role, jobDescription)
	if err != nil {
		return "", err
	}
	return Greeting(sess.Role), nil
}

// End removes a finished or abandoned session.
func (e *Engine) End(id string) {
	e.store.Delete(id)
}

// Advance processes one candidate utterance and returns what to speak next.
// An empty utterance means no speech was detected: the caller is re-prompted
// and nothing else changes. Generation failures close the session and yield
// the fallback utterance with a hangup; they are never retried mid-call.
func (e *Engine) Advance(ctx context.Context, id, utterance string) (Reply, error) {
	sess, err := e.store.Get(id)
	if err != nil {
		return Reply{}, err
	}
	if sess.Phase == PhaseClosed {
		return Reply{}, ErrSessionClosed
	}

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Reply{Text: retryPrompt, Reprompt: true}, nil
	}
	log.Printf("interview %s [%s]: candidate: %s", sess.ID, sess.Phase, utterance)

	switch sess.Phase {
	case PhaseIntroduction, PhaseQuestioning:
		sess.Phase = PhaseQuestioning
		if sess.QuestionCount >= e.maxQuestions {
			// degenerate configuration: no questions left to ask
			sess.History = append(sess.History, Turn{Speaker: SpeakerCandidate, Text: utterance})
			sess.Phase = PhaseCandidateQnA
			return Reply{Text: qnaPrompt}, nil
		}
		question, err := e.respond(ctx, sess, utterance, false)
		if err != nil {
			return e.fail(sess, err), nil
		}
		sess.History = append(sess.History,
			Turn{Speaker: SpeakerCandidate, Text: utterance},
			Turn{Speaker: SpeakerInterviewer, Text: question},
		)
		sess.QuestionCount++
		if sess.QuestionCount >= e.maxQuestions {
			sess.Phase = PhaseCandidateQnA
			return Reply{Text: question + " " + qnaPrompt}, nil
		}
		return Reply{Text: question}, nil

	case PhaseCandidateQnA:
		answer, err := e.respond(ctx, sess, utterance, false)
		if err != nil {
			return e.fail(sess, err), nil
		}
		sess.History = append(sess.History, Turn{Speaker: SpeakerCandidate, Text: utterance})
		rating, err := e.respond(ctx, sess, "", true)
		if err != nil {
			// the rating is side-effect-only; a failure here must not turn
			// the farewell into an error message
			log.Printf("interview %s: rating generation failed: %v", sess.ID, err)
			rating = ""
		} else {
			log.Printf("interview %s: rating: %s", sess.ID, rating)
		}
		sess.Phase = PhaseClosed
		return Reply{Text: answer + " " + closingLine, Rating: rating, Hangup: true}, nil
	}

	return Reply{}, fmt.Errorf("interview: unexpected phase %v", sess.Phase)
}

func (e *Engine) respond(ctx context.Context, sess *Session, utterance string, requestRating bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	text, err := e.responder.Respond(ctx, sess.History, utterance, sess.Role, sess.JobDescription, requestRating)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *Engine) fail(sess *Session, err error) Reply {
	log.Printf("interview %s: generation failed, closing call: %v", sess.ID, err)
	sess.Phase = PhaseClosed
	return Reply{Text: FallbackUtterance, Hangup: true}
}
