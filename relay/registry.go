// Package relay holds the session registry and the per-speaker pipelines
// that turn recognized speech into translated transcripts and dubbed audio
// for every listener.
package relay

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"parley/stt"
	"parley/translate"
	"parley/tts"
	"parley/wire"
)

// Sender delivers frames to one connected participant. SendJSON must not
// drop messages; SendAudio may, under backpressure.
type Sender interface {
	SendJSON(msg wire.Message) error
	SendAudio(frame []byte) error
}

// TranscriptArchiver receives finished utterances for archival. Failures
// are logged and never affect delivery.
type TranscriptArchiver interface {
	SaveTranscript(ctx context.Context, rec TranscriptRecord) error
}

// TranscriptRecord mirrors store.TranscriptRecord without importing it, so
// the registry depends only on the archival boundary.
type TranscriptRecord struct {
	SessionID      string
	SessionCode    string
	SpeakerID      string
	SpeakerName    string
	SourceLanguage string
	TargetLanguage string
	Original       string
	Translated     string
}

// Session is one active call. It always has at least one participant; the
// last removal tears the session down.
type Session struct {
	ID           string
	Code         string
	participants map[string]*Participant
}

// Participant is one connected endpoint, bound to exactly one session for
// its lifetime. ListenLanguage may change mid-session; SpokenLanguage is
// fixed because the recognition stream is bound to it.
type Participant struct {
	ID             string
	Name           string
	SpokenLanguage string
	ListenLanguage string
	VoiceProfileID string

	sender   Sender
	pipeline *pipeline
}

// JoinResult reports what AddParticipant did. Created is true when the join
// code provisioned a fresh session.
type JoinResult struct {
	SessionID     string
	Code          string
	ParticipantID string
	Created       bool
	Roster        []wire.ParticipantInfo
}

// JoinInfo is what a joiner declares about itself.
type JoinInfo struct {
	Name           string
	SpokenLanguage string
	ListenLanguage string
	VoiceProfileID string
	Sender         Sender
}

// Registry owns all sessions in the process. All mutation runs under one
// mutex, giving the same processed-to-completion discipline as the
// single-threaded event model it replaces.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	codes    map[string]string // normalized join code -> session id

	recognition stt.SpeechRecognition
	translator  translate.Translator
	synthesizer tts.Synthesizer
	archive     TranscriptArchiver

	flushTimeout time.Duration
	logger       *log.Logger
}

// Config carries the registry's collaborators. Nil collaborators disable
// the corresponding feature rather than failing joins.
type Config struct {
	Recognition  stt.SpeechRecognition
	Translator   translate.Translator
	Synthesizer  tts.Synthesizer
	Archive      TranscriptArchiver
	FlushTimeout time.Duration
	Logger       *log.Logger
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Recognition == nil {
		cfg.Logger.Warn("speech recognition not configured, transcription disabled")
	}
	if cfg.Translator == nil {
		cfg.Logger.Warn("translator not configured, cross-language delivery disabled")
	}
	if cfg.Synthesizer == nil {
		cfg.Logger.Warn("synthesizer not configured, dubbed audio disabled")
	}

	return &Registry{
		sessions:     make(map[string]*Session),
		codes:        make(map[string]string),
		recognition:  cfg.Recognition,
		translator:   cfg.Translator,
		synthesizer:  cfg.Synthesizer,
		archive:      cfg.Archive,
		flushTimeout: cfg.FlushTimeout,
		logger:       cfg.Logger,
	}
}

const codeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

// NewJoinCode generates a short join code that no active session holds.
func (r *Registry) NewJoinCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		code := make([]byte, 6)
		for i := range code {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				panic(err)
			}
			code[i] = codeAlphabet[n.Int64()]
		}
		if _, taken := r.codes[string(code)]; !taken {
			return string(code)
		}
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AddParticipant joins a session by code, provisioning the session if the
// code is new. The returned roster includes the joiner itself. Everyone
// already present hears about the newcomer.
func (r *Registry) AddParticipant(
	ctx context.Context,
	code string,
	info JoinInfo,
) (JoinResult, error) {
	code = normalizeCode(code)
	if code == "" {
		code = r.NewJoinCode()
	}

	p := &Participant{
		ID:             uuid.NewString(),
		Name:           info.Name,
		SpokenLanguage: info.SpokenLanguage,
		ListenLanguage: info.ListenLanguage,
		VoiceProfileID: info.VoiceProfileID,
		sender:         info.Sender,
	}

	// Open the recognition stream before touching registry state; dialing
	// under the lock would stall every session in the process.
	pipe := r.startPipeline(ctx, p)

	r.mu.Lock()
	created := false
	sessionID, ok := r.codes[code]
	var session *Session
	if ok {
		session = r.sessions[sessionID]
	} else {
		session = &Session{
			ID:           uuid.NewString(),
			Code:         code,
			participants: make(map[string]*Participant),
		}
		r.sessions[session.ID] = session
		r.codes[code] = session.ID
		created = true
	}

	p.pipeline = pipe
	session.participants[p.ID] = p

	roster := make([]wire.ParticipantInfo, 0, len(session.participants))
	for _, member := range session.participants {
		roster = append(roster, wire.ParticipantInfo{
			ID:             member.ID,
			Name:           member.Name,
			SpokenLanguage: member.SpokenLanguage,
		})
	}

	joined := wire.Message{
		Type: wire.TypeParticipantJoined,
		Participant: &wire.ParticipantInfo{
			ID:             p.ID,
			Name:           p.Name,
			SpokenLanguage: p.SpokenLanguage,
		},
	}
	for _, member := range session.participants {
		if member.ID == p.ID {
			continue
		}
		r.send(member, joined)
	}
	r.mu.Unlock()

	if pipe != nil {
		pipe.run(session.ID, r)
	}

	r.logger.Info(
		"join",
		"session", session.ID,
		"code", code,
		"participant", p.ID,
		"name", p.Name,
		"created", created,
	)

	return JoinResult{
		SessionID:     session.ID,
		Code:          code,
		ParticipantID: p.ID,
		Created:       created,
		Roster:        roster,
	}, nil
}

// RemoveParticipant closes the participant's pipeline and removes it from
// the session, tearing the session down when it was the last one.
func (r *Registry) RemoveParticipant(sessionID, participantID string) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p, ok := session.participants[participantID]
	if !ok {
		r.mu.Unlock()
		return
	}

	delete(session.participants, participantID)
	empty := len(session.participants) == 0
	if empty {
		delete(r.sessions, sessionID)
		delete(r.codes, session.Code)
	}

	left := wire.Message{
		Type:          wire.TypeParticipantLeft,
		ParticipantID: participantID,
	}
	for _, member := range session.participants {
		r.send(member, left)
	}
	r.mu.Unlock()

	if p.pipeline != nil {
		p.pipeline.stop()
	}

	r.logger.Info(
		"leave",
		"session", sessionID,
		"participant", participantID,
		"sessionClosed", empty,
	)
}

// UpdateListenLanguage changes where future utterances get routed for this
// participant. No broadcast: already-buffered deliveries keep their target.
func (r *Registry) UpdateListenLanguage(sessionID, participantID, language string) {
	if language == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	p, ok := session.participants[participantID]
	if !ok {
		return
	}
	p.ListenLanguage = language
}

// RouteAudio feeds a PCM chunk into the speaker's recognition stream,
// constructing the pipeline on demand if connection setup raced ahead of
// it. Audio for an unknown speaker is dropped: late frames from a
// just-left participant are expected.
func (r *Registry) RouteAudio(ctx context.Context, sessionID, speakerID string, pcm []byte) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		r.logger.Debug("audio for unknown session", "session", sessionID)
		return
	}
	p, ok := session.participants[speakerID]
	if !ok {
		r.mu.Unlock()
		r.logger.Debug("audio for unknown speaker", "speaker", speakerID)
		return
	}
	pipe := p.pipeline
	r.mu.Unlock()

	if pipe == nil {
		pipe = r.startPipeline(ctx, p)
		if pipe == nil {
			return
		}

		r.mu.Lock()
		session, ok := r.sessions[sessionID]
		if !ok {
			r.mu.Unlock()
			pipe.stop()
			return
		}
		current, ok := session.participants[speakerID]
		if !ok {
			r.mu.Unlock()
			pipe.stop()
			return
		}
		if current.pipeline != nil {
			// Lost the race; another chunk built the pipeline first.
			existing := current.pipeline
			r.mu.Unlock()
			pipe.stop()
			pipe = existing
		} else {
			current.pipeline = pipe
			r.mu.Unlock()
			pipe.run(sessionID, r)
		}
	}

	if err := pipe.sendAudio(pcm); err != nil {
		r.logger.Error("failed to forward audio", "speaker", speakerID, "error", err)
	}
}

// startPipeline opens a recognition stream and segmenter for a speaker.
// Returns nil when recognition is unavailable; audio is then dropped.
func (r *Registry) startPipeline(ctx context.Context, p *Participant) *pipeline {
	if r.recognition == nil {
		return nil
	}

	stream, err := r.recognition.Start(ctx, p.SpokenLanguage)
	if err != nil {
		r.logger.Error(
			"failed to start recognition",
			"participant", p.ID,
			"language", p.SpokenLanguage,
			"error", err,
		)
		return nil
	}

	return newPipeline(p, stream, r.flushTimeout)
}

// send delivers a control message, logging rather than propagating
// failures. Caller holds the registry lock.
func (r *Registry) send(p *Participant, msg wire.Message) {
	if p.sender == nil {
		return
	}
	if err := p.sender.SendJSON(msg); err != nil {
		r.logger.Error(
			"failed to send message",
			"participant", p.ID,
			"type", msg.Type,
			"error", err,
		)
	}
}

// SessionCount reports how many sessions are live.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
