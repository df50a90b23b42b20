package interview

import (
	"context"
	"errors"
)

// Phase is the position of a session in the interview script. Transitions are
// one-directional: Introduction -> Questioning -> CandidateQnA -> Closed.
type Phase int

const (
	PhaseIntroduction Phase = iota
	PhaseQuestioning
	PhaseCandidateQnA
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIntroduction:
		return "introduction"
	case PhaseQuestioning:
		return "questioning"
	case PhaseCandidateQnA:
		return "candidate-qna"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Speaker identifies who produced a history turn.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Turn is one utterance in the conversation history.
type Turn struct {
	Speaker Speaker
	Text    string
}

// Session holds the per-call interview state. It is owned by the Engine;
// transports only see the Reply values the Engine produces.
type Session struct {
	ID             string
	Role           string
	JobDescription string
	History        []Turn
	QuestionCount  int
	Phase          Phase
}

// Responder generates the interviewer's next utterance from the conversation
// so far. When requestRating is true the returned text is a candidate rating
// rather than a conversational reply.
type Responder interface {
	Respond(ctx context.Context, history []Turn, utterance, role, jobDescription string, requestRating bool) (string, error)
}

// Reply is what the transport should deliver back to the caller for one turn.
type Reply struct {
	// Text is the utterance to speak.
	Text string
	// Rating is the candidate rating produced at the end of the interview.
	// It is reported to the operator (logged), never spoken.
	Rating string
	// Hangup tells the transport to terminate the call after speaking Text.
	Hangup bool
	// Reprompt is set when no speech was detected; session state is unchanged.
	Reprompt bool
}

var (
	// ErrSessionNotFound is returned when a call id has no live session.
	ErrSessionNotFound = errors.New("interview: session not found")
	// ErrSessionExists is returned when creating a session with a taken id.
	ErrSessionExists = errors.New("interview: session already exists")
	// ErrSessionClosed is returned when input arrives after the interview ended.
	ErrSessionClosed = errors.New("interview: session closed")
)
