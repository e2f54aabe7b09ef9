package wire

import (
	"bytes"
	"strings"
	"testing"
)

func TestAudioFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		kind      AudioKind
		speakerID string
		pcm       []byte
	}{
		{
			name:      "mic frame",
			kind:      KindMic,
			speakerID: "speaker-1",
			pcm:       []byte{0x00, 0x01, 0xff, 0xfe},
		},
		{
			name:      "dubbed frame",
			kind:      KindDubbed,
			speakerID: "b7c2",
			pcm:       bytes.Repeat([]byte{0xab}, 4096),
		},
		{
			name:      "empty speaker id",
			kind:      KindMic,
			speakerID: "",
			pcm:       []byte{1, 2, 3},
		},
		{
			name:      "empty payload",
			kind:      KindDubbed,
			speakerID: "someone",
			pcm:       nil,
		},
		{
			name:      "max length speaker id",
			kind:      KindMic,
			speakerID: strings.Repeat("x", 255),
			pcm:       []byte{9},
		},
		{
			name:      "utf8 speaker id",
			kind:      KindMic,
			speakerID: "participant-ünïcode",
			pcm:       []byte{0x7f, 0x80},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeAudioFrame(tt.kind, tt.speakerID, tt.pcm)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}

			frame, err := DecodeAudioFrame(data)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}

			if frame.Kind != tt.kind {
				t.Errorf("kind = 0x%02x, want 0x%02x", frame.Kind, tt.kind)
			}
			if frame.SpeakerID != tt.speakerID {
				t.Errorf("speaker id = %q, want %q", frame.SpeakerID, tt.speakerID)
			}
			if !bytes.Equal(frame.PCM, tt.pcm) {
				t.Errorf("pcm payload mismatch: got %d bytes, want %d", len(frame.PCM), len(tt.pcm))
			}
		})
	}
}

func TestEncodeAudioFrameRejectsLongSpeakerID(t *testing.T) {
	_, err := EncodeAudioFrame(KindMic, strings.Repeat("x", 256), nil)
	if err == nil {
		t.Fatal("expected error for 256-byte speaker id")
	}
}

func TestDecodeAudioFrameMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "kind only", data: []byte{byte(KindMic)}},
		{name: "unknown kind", data: []byte{0x7f, 0x00}},
		{name: "id length exceeds buffer", data: []byte{byte(KindMic), 10, 'a', 'b'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAudioFrame(tt.data); err == nil {
				t.Errorf("expected decode error for %v", tt.data)
			}
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{
		"type": "join",
		"sessionCode": "XYZ",
		"participantName": "Ada",
		"spokenLanguage": "en",
		"listenLanguage": "es",
		"voiceProfileId": "voice-7"
	}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Type != TypeJoin {
		t.Errorf("type = %q, want %q", msg.Type, TypeJoin)
	}
	if msg.SessionCode != "XYZ" || msg.ParticipantName != "Ada" {
		t.Errorf("unexpected join fields: %+v", msg)
	}
	if msg.SpokenLanguage != "en" || msg.ListenLanguage != "es" {
		t.Errorf("unexpected languages: %+v", msg)
	}
	if msg.VoiceProfileID != "voice-7" {
		t.Errorf("voice profile = %q, want voice-7", msg.VoiceProfileID)
	}
}

func TestDecodeMessageRejectsBadInput(t *testing.T) {
	if _, err := DecodeMessage([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := DecodeMessage([]byte(`{"type":"transcript"}`)); err == nil {
		t.Error("expected error for outbound-only type on inbound path")
	}
	if _, err := DecodeMessage([]byte(`{"type":"bogus"}`)); err == nil {
		t.Error("expected error for unknown type")
	}
}
