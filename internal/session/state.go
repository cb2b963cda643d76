// Package session holds conversation state and its persistence. A session
// is the unit of continuity: ordered messages plus the sticky permission
// grants the user accumulated, so a resumed conversation behaves exactly
// like one that never stopped.
package session

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/SamuelSchlesinger/generalist/internal/message"
	"github.com/SamuelSchlesinger/generalist/internal/provider"
	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

// State is one conversation's full persistent state.
type State struct {
	// ID uniquely identifies the session.
	ID string `json:"id"`

	// Title is a short human label, defaulted from the first user message.
	Title string `json:"title,omitempty"`

	// Messages is the ordered conversation history, oldest first.
	Messages []message.Message `json:"messages"`

	// Grants are the sticky permission decisions accumulated in this
	// session, keyed by tool name.
	Grants map[string]tool.Grant `json:"grants,omitempty"`

	// Usage is cumulative token consumption across all turns.
	Usage provider.TokenUsage `json:"usage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty session with a fresh id.
func New() *State {
	now := time.Now().UTC()
	return &State{
		ID:        uuid.NewString(),
		Grants:    make(map[string]tool.Grant),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages to the history in order.
func (s *State) Append(msgs ...message.Message) {
	s.Messages = append(s.Messages, msgs...)
	s.UpdatedAt = time.Now().UTC()
	if s.Title == "" {
		s.deriveTitle()
	}
}

// SetGrants replaces the stored grants with a snapshot from the live store.
func (s *State) SetGrants(grants map[string]tool.Grant) {
	s.Grants = grants
	s.UpdatedAt = time.Now().UTC()
}

const maxTitleLen = 60

// deriveTitle takes the first user text as the session label.
func (s *State) deriveTitle() {
	for _, msg := range s.Messages {
		if msg.Role != message.RoleUser {
			continue
		}
		text := msg.Text()
		if text == "" {
			continue
		}
		if len(text) > maxTitleLen {
			cut := maxTitleLen
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		s.Title = text
		return
	}
}

// Summary is the listing projection of a session.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
