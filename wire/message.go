package wire

import (
	"encoding/json"
	"fmt"
)

// Control message types. Join, Leave and UpdateSettings flow from the peer to
// the relay; the rest flow back out.
const (
	TypeJoin           = "join"
	TypeLeave          = "leave"
	TypeUpdateSettings = "updateSettings"

	TypeJoined            = "joined"
	TypeParticipantJoined = "participantJoined"
	TypeParticipantLeft   = "participantLeft"
	TypeTranscript        = "transcript"
	TypeError             = "error"
)

// Message is the envelope for every JSON control message. Only the fields
// relevant to a given type are populated.
type Message struct {
	Type string `json:"type"`

	// join
	SessionCode     string `json:"sessionCode,omitempty"`
	ParticipantName string `json:"participantName,omitempty"`
	SpokenLanguage  string `json:"spokenLanguage,omitempty"`
	VoiceProfileID  string `json:"voiceProfileId,omitempty"`

	// join, updateSettings
	ListenLanguage string `json:"listenLanguage,omitempty"`

	// joined
	SessionID     string            `json:"sessionId,omitempty"`
	ParticipantID string            `json:"participantId,omitempty"`
	Participants  []ParticipantInfo `json:"participants,omitempty"`

	// participantJoined
	Participant *ParticipantInfo `json:"participant,omitempty"`

	// transcript
	SpeakerID   string `json:"speakerId,omitempty"`
	SpeakerName string `json:"speakerName,omitempty"`
	Original    string `json:"original,omitempty"`
	Translated  string `json:"translated,omitempty"`
	IsFinal     bool   `json:"isFinal,omitempty"`

	// error
	ErrorMessage string `json:"message,omitempty"`
}

// ParticipantInfo is the roster entry shared in joined/participantJoined
// messages.
type ParticipantInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SpokenLanguage string `json:"spokenLanguage"`
}

// DecodeMessage parses an inbound control message and validates its type tag.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("malformed control message: %w", err)
	}

	switch msg.Type {
	case TypeJoin, TypeLeave, TypeUpdateSettings:
		return msg, nil
	default:
		return Message{}, fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

func ErrorMessage(text string) Message {
	return Message{Type: TypeError, ErrorMessage: text}
}
