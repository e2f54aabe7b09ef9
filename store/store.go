// Package store archives finished transcripts. Persistence is a collaborator
// of the relay, not part of it: the relay only ever sees this interface.
package store

import (
	"context"
	"time"
)

// TranscriptRecord is one finished utterance, original or translated.
type TranscriptRecord struct {
	SessionID      string
	SessionCode    string
	SpeakerID      string
	SpeakerName    string
	SourceLanguage string
	TargetLanguage string
	Original       string
	Translated     string
	CreatedAt      time.Time
}

type TranscriptStore interface {
	SaveTranscript(ctx context.Context, rec TranscriptRecord) error
	ListRecent(ctx context.Context, limit int) ([]TranscriptRecord, error)
}

// Discard is the store used when no database is configured.
type Discard struct{}

func (Discard) SaveTranscript(context.Context, TranscriptRecord) error {
	return nil
}

func (Discard) ListRecent(context.Context, int) ([]TranscriptRecord, error) {
	return nil, nil
}
