// Package stt defines the streaming speech recognition boundary and the
// Speechmatics realtime client behind it.
package stt

import (
	"context"
)

// Result is one transcript event from the recognition stream. Partial
// results are revised by later events; final results are stable.
type Result struct {
	Text       string
	IsFinal    bool
	Start      float64
	Duration   float64
	Confidence float64
}

// SpeechRecognizer is one live recognition stream for a single speaker.
type SpeechRecognizer interface {
	SendAudio(pcm []byte) error
	Results() <-chan Result
	Stop() error
}

// SpeechRecognition opens recognition streams. The language is fixed for the
// lifetime of each stream.
type SpeechRecognition interface {
	Start(ctx context.Context, language string) (SpeechRecognizer, error)
}
