package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"parley/relay"
	"parley/tts"
)

func configure(t *testing.T, settings map[string]string) {
	t.Helper()
	t.Cleanup(viper.Reset)
	viper.Reset()
	for key, value := range settings {
		viper.Set(key, value)
	}
}

func TestBuildSynthesizerProviderOrder(t *testing.T) {
	tests := []struct {
		name              string
		settings          map[string]string
		wantPrimary       interface{}
		wantSecondary     interface{}
		wantBare          interface{}
		wantNoSynthesizer bool
	}{
		{
			name: "minimax default with speechmatics backup",
			settings: map[string]string{
				"minimax_api_key":      "mk",
				"minimax_group_id":     "g1",
				"speechmatics_api_key": "sk",
			},
			wantPrimary:   &tts.MinimaxSynthesizer{},
			wantSecondary: &tts.SpeechmaticsSynthesizer{},
		},
		{
			name: "speechmatics provider with minimax backup",
			settings: map[string]string{
				"tts_provider":         "speechmatics",
				"minimax_api_key":      "mk",
				"minimax_group_id":     "g1",
				"speechmatics_api_key": "sk",
			},
			wantPrimary:   &tts.SpeechmaticsSynthesizer{},
			wantSecondary: &tts.MinimaxSynthesizer{},
		},
		{
			name: "speechmatics provider without minimax",
			settings: map[string]string{
				"tts_provider":         "speechmatics",
				"speechmatics_api_key": "sk",
			},
			wantBare: &tts.SpeechmaticsSynthesizer{},
		},
		{
			name: "speechmatics provider falls back to minimax alone",
			settings: map[string]string{
				"tts_provider":     "speechmatics",
				"minimax_api_key":  "mk",
				"minimax_group_id": "g1",
			},
			wantBare: &tts.MinimaxSynthesizer{},
		},
		{
			name:              "no credentials",
			settings:          map[string]string{},
			wantNoSynthesizer: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configure(t, tt.settings)

			s := buildSynthesizer(log.New(io.Discard))

			if tt.wantNoSynthesizer {
				if s != nil {
					t.Fatalf("synthesizer = %T, want nil", s)
				}
				return
			}

			if tt.wantBare != nil {
				if sameType(s, tt.wantBare) {
					return
				}
				t.Fatalf("synthesizer = %T, want %T", s, tt.wantBare)
			}

			fb, ok := s.(*tts.Fallback)
			if !ok {
				t.Fatalf("synthesizer = %T, want *tts.Fallback", s)
			}
			if !sameType(fb.Primary, tt.wantPrimary) {
				t.Errorf("primary = %T, want %T", fb.Primary, tt.wantPrimary)
			}
			if !sameType(fb.Secondary, tt.wantSecondary) {
				t.Errorf("secondary = %T, want %T", fb.Secondary, tt.wantSecondary)
			}
		})
	}
}

func sameType(got, want interface{}) bool {
	switch want.(type) {
	case *tts.MinimaxSynthesizer:
		_, ok := got.(*tts.MinimaxSynthesizer)
		return ok
	case *tts.SpeechmaticsSynthesizer:
		_, ok := got.(*tts.SpeechmaticsSynthesizer)
		return ok
	}
	return false
}

// A Spanish utterance under the speechmatics provider must still come back
// dubbed: the preview voices are English-only, so MiniMax picks it up.
func TestSpeechmaticsProviderDubsSpanishViaMinimax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"audio":"0001feff"}}`))
	}))
	defer srv.Close()

	configure(t, map[string]string{
		"tts_provider":         "speechmatics",
		"minimax_api_key":      "mk",
		"minimax_group_id":     "g1",
		"speechmatics_api_key": "sk",
	})

	s := buildSynthesizer(log.New(io.Discard))
	fb, ok := s.(*tts.Fallback)
	if !ok {
		t.Fatalf("synthesizer = %T, want *tts.Fallback", s)
	}
	fb.Secondary.(*tts.MinimaxSynthesizer).URL = srv.URL

	audio, err := fb.Synthesize(context.Background(), "hola", "es", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []byte{0x00, 0x01, 0xfe, 0xff}
	if len(audio) != len(want) {
		t.Fatalf("audio = %x, want %x", audio, want)
	}
	for i := range want {
		if audio[i] != want[i] {
			t.Fatalf("audio = %x, want %x", audio, want)
		}
	}
}

func TestOpenStoreWithoutDatabaseDiscards(t *testing.T) {
	configure(t, map[string]string{})

	archive, closeStore, err := openStore(context.Background())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer closeStore()

	if archive == nil {
		t.Fatal("archive is nil, want discard store")
	}
	err = archive.SaveTranscript(context.Background(), relay.TranscriptRecord{
		SessionID: "s1",
		Original:  "hello",
	})
	if err != nil {
		t.Errorf("SaveTranscript on discard store: %v", err)
	}
}
