package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

const MinimaxT2AURL = "https://api.minimax.chat/v1/t2a_v2"

// Default voices per language for callers without a voice profile.
var minimaxVoices = map[string]string{
	"en": "English_Male_1",
	"es": "Spanish_Male_1",
	"fr": "French_Male_1",
	"de": "German_Male_1",
	"it": "Italian_Male_1",
	"pt": "Portuguese_Male_1",
	"zh": "Chinese_Male_1",
	"ja": "Japanese_Male_1",
	"ko": "Korean_Male_1",
	"ar": "Arabic_Male_1",
	"hi": "Hindi_Male_1",
	"ru": "Russian_Male_1",
	"nl": "Dutch_Male_1",
	"sv": "Swedish_Male_1",
	"pl": "Polish_Male_1",
	"tr": "Turkish_Male_1",
}

const minimaxDefaultVoice = "English_Male_1"

// MinimaxSynthesizer speaks the MiniMax T2A v2 API. Output is 24 kHz mono
// s16le PCM so frames can go straight onto the wire as dubbed audio.
type MinimaxSynthesizer struct {
	APIKey     string
	GroupID    string
	URL        string
	HTTPClient *http.Client
	logger     *log.Logger
}

func NewMinimaxSynthesizer(apiKey, groupID string, logger *log.Logger) *MinimaxSynthesizer {
	return &MinimaxSynthesizer{
		APIKey:     apiKey,
		GroupID:    groupID,
		URL:        MinimaxT2AURL,
		HTTPClient: &http.Client{},
		logger:     logger,
	}
}

type minimaxVoiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
}

type minimaxAudioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
}

type minimaxT2ARequest struct {
	Model        string              `json:"model"`
	Text         string              `json:"text"`
	Stream       bool                `json:"stream"`
	VoiceSetting minimaxVoiceSetting `json:"voice_setting"`
	AudioSetting minimaxAudioSetting `json:"audio_setting"`
}

type minimaxT2AResponse struct {
	Data struct {
		Audio       string `json:"audio"`
		AudioBase64 string `json:"audio_base64"`
	} `json:"data"`
}

func (m *MinimaxSynthesizer) Synthesize(
	ctx context.Context,
	text, language, voiceProfileID string,
) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if m.APIKey == "" {
		return nil, fmt.Errorf("minimax api key not configured")
	}

	voiceID := voiceProfileID
	if voiceID == "" {
		voiceID = minimaxVoices[language]
	}
	if voiceID == "" {
		voiceID = minimaxDefaultVoice
	}

	payload := minimaxT2ARequest{
		Model:  "speech-02-turbo",
		Text:   text,
		Stream: false,
		VoiceSetting: minimaxVoiceSetting{
			VoiceID: voiceID,
			Speed:   1.0,
			Vol:     1.0,
			Pitch:   0,
		},
		AudioSetting: minimaxAudioSetting{
			SampleRate: 24000,
			Bitrate:    128000,
			Format:     "pcm",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?GroupId=%s", m.URL, m.GroupID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
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

	var t2aResp minimaxT2AResponse
	if err := json.NewDecoder(resp.Body).Decode(&t2aResp); err != nil {
		return nil, fmt.Errorf("failed to decode synthesis response: %w", err)
	}

	audio, err := decodeMinimaxAudio(t2aResp)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("speak", "voice", voiceID, "bytes", len(audio))
	return audio, nil
}

// The API returns audio hex-encoded; some deployments use base64 instead.
func decodeMinimaxAudio(resp minimaxT2AResponse) ([]byte, error) {
	if resp.Data.Audio != "" {
		audio, err := hex.DecodeString(resp.Data.Audio)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex audio: %w", err)
		}
		return audio, nil
	}
	if resp.Data.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(resp.Data.AudioBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
		}
		return audio, nil
	}
	return nil, fmt.Errorf("no audio in synthesis response")
}
