package relay

import (
	"context"
	"time"

	"parley/wire"
)

const collaboratorTimeout = 30 * time.Second

// handleUtterance is the fan-out point: one finished utterance becomes one
// translation+synthesis task per distinct listen language in the session,
// excluding the speaker's own language. Tasks are independent; a slow or
// failing language never holds up the others.
func (r *Registry) handleUtterance(sessionID string, speaker *Participant, utterance string) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	sessionCode := session.Code

	targets := make(map[string]bool)
	for _, member := range session.participants {
		if member.ListenLanguage != "" {
			targets[member.ListenLanguage] = true
		}
	}
	r.mu.Unlock()

	r.logger.Info(
		"utterance",
		"speaker", speaker.ID,
		"language", speaker.SpokenLanguage,
		"text", utterance,
	)

	// Same-language listeners get the original right away, with no
	// translation or synthesis work.
	if targets[speaker.SpokenLanguage] {
		r.deliverTranscript(
			sessionID,
			speaker,
			speaker.SpokenLanguage,
			utterance,
			utterance,
			true,
		)
	}

	r.archiveTranscript(TranscriptRecord{
		SessionID:      sessionID,
		SessionCode:    sessionCode,
		SpeakerID:      speaker.ID,
		SpeakerName:    speaker.Name,
		SourceLanguage: speaker.SpokenLanguage,
		TargetLanguage: speaker.SpokenLanguage,
		Original:       utterance,
		Translated:     utterance,
	})

	if r.translator == nil {
		return
	}

	for target := range targets {
		if target == speaker.SpokenLanguage {
			continue
		}
		go r.translateAndSpeak(sessionID, sessionCode, speaker, utterance, target)
	}
}

// translateAndSpeak handles one (utterance, target language) pair. The
// transcript goes out as soon as translation completes; audio follows when
// synthesis does, and a synthesis failure only costs the audio.
func (r *Registry) translateAndSpeak(
	sessionID, sessionCode string,
	speaker *Participant,
	utterance, targetLang string,
) {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()

	translated, err := r.translator.Translate(
		ctx,
		utterance,
		speaker.SpokenLanguage,
		targetLang,
	)
	if err != nil {
		r.logger.Error(
			"translation failed",
			"speaker", speaker.ID,
			"target", targetLang,
			"error", err,
		)
		return
	}
	if translated == "" {
		return
	}

	r.deliverTranscript(sessionID, speaker, targetLang, utterance, translated, true)

	r.archiveTranscript(TranscriptRecord{
		SessionID:      sessionID,
		SessionCode:    sessionCode,
		SpeakerID:      speaker.ID,
		SpeakerName:    speaker.Name,
		SourceLanguage: speaker.SpokenLanguage,
		TargetLanguage: targetLang,
		Original:       utterance,
		Translated:     translated,
	})

	if r.synthesizer == nil {
		return
	}

	audio, err := r.synthesizer.Synthesize(ctx, translated, targetLang, speaker.VoiceProfileID)
	if err != nil {
		r.logger.Error(
			"synthesis failed",
			"speaker", speaker.ID,
			"target", targetLang,
			"error", err,
		)
		return
	}
	if len(audio) == 0 {
		return
	}

	r.deliverDubbedAudio(sessionID, speaker.ID, targetLang, audio)
}

// deliverPartial surfaces an in-progress recognition fragment as a live
// preview to listeners who share the speaker's language.
func (r *Registry) deliverPartial(sessionID string, speaker *Participant, text string) {
	msg := wire.Message{
		Type:        wire.TypeTranscript,
		SpeakerID:   speaker.ID,
		SpeakerName: speaker.Name,
		Original:    text,
		IsFinal:     false,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for _, member := range session.participants {
		if member.ListenLanguage != speaker.SpokenLanguage {
			continue
		}
		r.send(member, msg)
	}
}

// deliverTranscript fans a finished transcript out to every participant
// listening in targetLang. A session or participant that disappeared while
// the translation was in flight just means fewer recipients.
func (r *Registry) deliverTranscript(
	sessionID string,
	speaker *Participant,
	targetLang, original, translated string,
	isFinal bool,
) {
	msg := wire.Message{
		Type:        wire.TypeTranscript,
		SpeakerID:   speaker.ID,
		SpeakerName: speaker.Name,
		Original:    original,
		Translated:  translated,
		IsFinal:     isFinal,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for _, member := range session.participants {
		if member.ListenLanguage != targetLang {
			continue
		}
		r.send(member, msg)
	}
}

// deliverDubbedAudio fans synthesized audio out to listeners in targetLang.
// The frame is encoded once; senders decide individually whether to drop it
// under backpressure.
func (r *Registry) deliverDubbedAudio(sessionID, speakerID, targetLang string, audio []byte) {
	frame, err := wire.EncodeAudioFrame(wire.KindDubbed, speakerID, audio)
	if err != nil {
		r.logger.Error("failed to encode dubbed frame", "speaker", speakerID, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for _, member := range session.participants {
		if member.ListenLanguage != targetLang {
			continue
		}
		if member.sender == nil {
			continue
		}
		if err := member.sender.SendAudio(frame); err != nil {
			r.logger.Error(
				"failed to send dubbed audio",
				"participant", member.ID,
				"error", err,
			)
		}
	}
}

// archiveTranscript hands a record to the archive without blocking
// delivery. Archive failures are logged and forgotten.
func (r *Registry) archiveTranscript(rec TranscriptRecord) {
	if r.archive == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()

		if err := r.archive.SaveTranscript(ctx, rec); err != nil {
			r.logger.Error("failed to archive transcript", "error", err)
		}
	}()
}
