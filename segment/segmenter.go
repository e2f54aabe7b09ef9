// Package segment accumulates finalized transcript fragments into whole
// utterances. Recognition engines finalize text in short bursts that rarely
// line up with sentence boundaries, so we flush on terminal punctuation or
// after a pause.
package segment

import (
	"strings"
	"sync"
	"time"
	"unicode"
)

// DefaultFlushTimeout is how long we wait after the last final fragment
// before giving up on more text arriving for the current utterance.
const DefaultFlushTimeout = 1500 * time.Millisecond

var terminalPunctuation = []string{".", "!", "?", "。", "！", "？"}

// Segmenter buffers final transcript fragments for one speaker and emits
// complete utterances. Safe for use from multiple goroutines.
type Segmenter struct {
	mu    sync.Mutex
	parts []string
	timer *time.Timer

	flushAfter time.Duration
	emit       func(utterance string)
}

// New returns a segmenter that calls emit with each completed utterance.
// A zero flushAfter selects DefaultFlushTimeout.
func New(flushAfter time.Duration, emit func(string)) *Segmenter {
	if flushAfter <= 0 {
		flushAfter = DefaultFlushTimeout
	}
	return &Segmenter{
		flushAfter: flushAfter,
		emit:       emit,
	}
}

// Push appends a finalized fragment. Fragments ending in terminal
// punctuation flush the buffer immediately; otherwise the pause timer is
// restarted.
func (s *Segmenter) Push(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}

	s.mu.Lock()
	s.parts = append(s.parts, fragment)

	if endsSentence(fragment) {
		utterance := s.takeLocked()
		s.mu.Unlock()
		s.emitIfSpeech(utterance)
		return
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.flushAfter, s.flushOnTimeout)
	s.mu.Unlock()
}

// Flush emits whatever is buffered without waiting for punctuation or the
// timer. Used when a speaker leaves mid-sentence.
func (s *Segmenter) Flush() {
	s.mu.Lock()
	utterance := s.takeLocked()
	s.mu.Unlock()
	s.emitIfSpeech(utterance)
}

// Stop cancels any pending timer and discards the buffer.
func (s *Segmenter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.parts = nil
}

func (s *Segmenter) flushOnTimeout() {
	s.mu.Lock()
	utterance := s.takeLocked()
	s.mu.Unlock()
	s.emitIfSpeech(utterance)
}

// takeLocked drains the buffer and cancels the timer. Caller holds the lock.
func (s *Segmenter) takeLocked() string {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	utterance := strings.TrimSpace(strings.Join(s.parts, " "))
	s.parts = nil
	return utterance
}

// emitIfSpeech drops utterances with no letters or digits, so stray
// punctuation from the recognizer never reaches translation.
func (s *Segmenter) emitIfSpeech(utterance string) {
	if !hasSpeech(utterance) {
		return
	}
	s.emit(utterance)
}

func endsSentence(fragment string) bool {
	for _, p := range terminalPunctuation {
		if strings.HasSuffix(fragment, p) {
			return true
		}
	}
	return false
}

func hasSpeech(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
