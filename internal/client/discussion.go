package client

import (
	"context"
	"errors"
	"strings"
)

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerStudent Speaker = "student"
	SpeakerMentor  Speaker = "mentor"
)

// ConversationTurn is one message of a case discussion.
type ConversationTurn struct {
	Speaker Speaker
	Text    string
}

// Discussion holds the transcript of one case discussion. The server keeps
// no state, so the opening case is re-sent with every answer.
type Discussion struct {
	client *Client
	turns  []ConversationTurn
}

// NewDiscussion starts an empty discussion.
func NewDiscussion(c *Client) *Discussion {
	return &Discussion{client: c, turns: nil}
}

// Send posts the learner's next message. The first message is the case
// itself; later ones are answers to it. A failed request is recorded in
// the transcript as the fallback text and returned as an error.
func (d *Discussion) Send(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("message cannot be empty")
	}

	caseText, answer := text, ""
	if len(d.turns) > 0 {
		caseText, answer = d.turns[0].Text, text
	}

	d.turns = append(d.turns, ConversationTurn{Speaker: SpeakerStudent, Text: text})

	reply, err := d.client.Discuss(ctx, caseText, answer)
	if err != nil {
		d.turns = append(d.turns, ConversationTurn{Speaker: SpeakerMentor, Text: FallbackText})
		return "", err
	}

	d.turns = append(d.turns, ConversationTurn{Speaker: SpeakerMentor, Text: reply})

	return reply, nil
}

// Turns returns a copy of the transcript.
func (d *Discussion) Turns() []ConversationTurn {
	out := make([]ConversationTurn, len(d.turns))
	copy(out, d.turns)
	return out
}

// Case returns the opening case, or "" before the first message.
func (d *Discussion) Case() string {
	if len(d.turns) == 0 {
		return ""
	}
	return d.turns[0].Text
}
