package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

const SpeechmaticsTTSURL = "https://preview.tts.speechmatics.com/generate"

// The preview API currently ships English voices only.
var speechmaticsVoices = map[string]string{
	"en": "sarah",
}

// SpeechmaticsSynthesizer speaks the Speechmatics preview TTS API. Callers
// should wrap it in a Fallback since language coverage is narrow.
type SpeechmaticsSynthesizer struct {
	APIKey       string
	URL          string
	OutputFormat string
	HTTPClient   *http.Client
	logger       *log.Logger
}

func NewSpeechmaticsSynthesizer(apiKey string, logger *log.Logger) *SpeechmaticsSynthesizer {
	return &SpeechmaticsSynthesizer{
		APIKey:       apiKey,
		URL:          SpeechmaticsTTSURL,
		OutputFormat: "wav_16000",
		HTTPClient:   &http.Client{},
		logger:       logger,
	}
}

func (s *SpeechmaticsSynthesizer) Synthesize(
	ctx context.Context,
	text, language, voiceProfileID string,
) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if s.APIKey == "" {
		return nil, fmt.Errorf("speechmatics api key not configured")
	}

	voice := voiceProfileID
	if voice == "" {
		var ok bool
		voice, ok = speechmaticsVoices[strings.ToLower(language)]
		if !ok {
			return nil, ErrLanguageUnsupported{Language: language}
		}
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?output_format=%s", s.URL, voice, s.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"unexpected status code: %d, response body: %s",
			resp.StatusCode,
			string(respBody),
		)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio in synthesis response")
	}

	s.logger.Debug("speak", "voice", voice, "format", s.OutputFormat, "bytes", len(audio))
	return audio, nil
}
