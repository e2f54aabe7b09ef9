// Package tts defines the speech synthesis boundary and the MiniMax and
// Speechmatics clients behind it.
package tts

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// Synthesizer renders text into raw audio bytes. voiceProfileID selects a
// cloned voice when the provider supports one; empty picks a default voice
// for the language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language, voiceProfileID string) ([]byte, error)
}

// ErrLanguageUnsupported marks a provider that has no voice for the
// requested language, so callers can fall back instead of giving up.
type ErrLanguageUnsupported struct {
	Language string
}

func (e ErrLanguageUnsupported) Error() string {
	return fmt.Sprintf("no voice available for language %q", e.Language)
}

// Fallback tries the primary synthesizer and falls back to the secondary on
// any failure, including unsupported languages.
type Fallback struct {
	Primary   Synthesizer
	Secondary Synthesizer
	logger    *log.Logger
}

func NewFallback(primary, secondary Synthesizer, logger *log.Logger) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, logger: logger}
}

func (f *Fallback) Synthesize(
	ctx context.Context,
	text, language, voiceProfileID string,
) ([]byte, error) {
	audio, err := f.Primary.Synthesize(ctx, text, language, voiceProfileID)
	if err == nil {
		return audio, nil
	}
	if f.Secondary == nil {
		return nil, err
	}

	f.logger.Warn(
		"primary synthesis failed, falling back",
		"language", language,
		"error", err,
	)
	return f.Secondary.Synthesize(ctx, text, language, voiceProfileID)
}
