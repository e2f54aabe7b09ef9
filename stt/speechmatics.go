package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const SpeechmaticsRTURL = "wss://eu2.rt.speechmatics.com/v2"

// Speechmatics wants its own language codes in a few cases.
var speechmaticsLanguages = map[string]string{
	"zh": "cmn",
}

// SpeechmaticsClient opens realtime transcription streams against the
// Speechmatics RT API.
type SpeechmaticsClient struct {
	APIKey string
	URL    string
	logger *log.Logger
}

func NewSpeechmaticsClient(apiKey string, logger *log.Logger) *SpeechmaticsClient {
	return &SpeechmaticsClient{
		APIKey: apiKey,
		URL:    SpeechmaticsRTURL,
		logger: logger,
	}
}

type transcriptionConfig struct {
	Language       string  `json:"language"`
	OperatingPoint string  `json:"operating_point,omitempty"`
	EnablePartials bool    `json:"enable_partials,omitempty"`
	MaxDelay       float64 `json:"max_delay,omitempty"`
}

type audioFormat struct {
	Type       string `json:"type"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type startRecognitionMessage struct {
	Message             string              `json:"message"`
	AudioFormat         audioFormat         `json:"audio_format"`
	TranscriptionConfig transcriptionConfig `json:"transcription_config"`
}

type endOfStreamMessage struct {
	Message   string `json:"message"`
	LastSeqNo int    `json:"last_seq_no"`
}

type rtTranscriptMessage struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Results []struct {
		Alternatives []struct {
			Confidence float64 `json:"confidence"`
			Content    string  `json:"content"`
		} `json:"alternatives"`
		StartTime float64 `json:"start_time"`
		EndTime   float64 `json:"end_time"`
	} `json:"results"`
}

// Start dials the RT endpoint, performs the StartRecognition handshake, and
// returns a stream once RecognitionStarted arrives.
func (c *SpeechmaticsClient) Start(
	ctx context.Context,
	language string,
) (SpeechRecognizer, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("speechmatics api key not configured")
	}

	if mapped, ok := speechmaticsLanguages[language]; ok {
		language = mapped
	}

	header := http.Header{}
	header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to speechmatics: %w", err)
	}

	startMsg := startRecognitionMessage{
		Message: "StartRecognition",
		AudioFormat: audioFormat{
			Type:       "raw",
			Encoding:   "pcm_s16le",
			SampleRate: 16000,
		},
		TranscriptionConfig: transcriptionConfig{
			Language:       language,
			OperatingPoint: "enhanced",
			EnablePartials: true,
			MaxDelay:       2.0,
		},
	}
	if err := conn.WriteJSON(startMsg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send StartRecognition: %w", err)
	}

	var reply rtTranscriptMessage
	if err := conn.ReadJSON(&reply); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read recognition handshake: %w", err)
	}
	if reply.Message != "RecognitionStarted" {
		conn.Close()
		return nil, fmt.Errorf(
			"recognition did not start: %s %s",
			reply.Message,
			reply.Reason,
		)
	}

	c.logger.Info("recognition started", "language", language)

	s := &speechmaticsStream{
		conn:    conn,
		results: make(chan Result, 16),
		done:    make(chan struct{}),
		logger:  c.logger,
	}
	go s.receiveLoop()

	return s, nil
}

type speechmaticsStream struct {
	conn    *websocket.Conn
	results chan Result
	done    chan struct{}
	logger  *log.Logger

	writeMu sync.Mutex
	seqNo   int
	stopped bool
}

func (s *speechmaticsStream) receiveLoop() {
	defer close(s.results)

	for {
		var msg rtTranscriptMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
			) {
				s.logger.Error("recognition stream closed", "error", err)
			}
			return
		}

		switch msg.Message {
		case "AddPartialTranscript":
			if r, ok := resultFrom(msg, false); ok && !s.deliver(r) {
				return
			}
		case "AddTranscript":
			if r, ok := resultFrom(msg, true); ok && !s.deliver(r) {
				return
			}
		case "EndOfTranscript":
			return
		case "Error":
			s.logger.Error("recognition error", "reason", msg.Reason)
		}
	}
}

// deliver hands a result to the consumer. A stopped stream may never be
// read again, so waiting on a full buffer would strand this goroutine.
func (s *speechmaticsStream) deliver(r Result) bool {
	select {
	case s.results <- r:
		return true
	case <-s.done:
		return false
	}
}

func resultFrom(msg rtTranscriptMessage, isFinal bool) (Result, bool) {
	var words []string
	var confidence float64
	start := -1.0
	end := 0.0

	for _, res := range msg.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		alt := res.Alternatives[0]
		if alt.Content == "" {
			continue
		}
		words = append(words, alt.Content)
		confidence += alt.Confidence
		if start < 0 {
			start = res.StartTime
		}
		end = res.EndTime
	}

	if len(words) == 0 {
		return Result{}, false
	}

	return Result{
		Text:       strings.Join(words, " "),
		IsFinal:    isFinal,
		Start:      start,
		Duration:   end - start,
		Confidence: confidence / float64(len(words)),
	}, true
}

func (s *speechmaticsStream) SendAudio(pcm []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.stopped {
		return fmt.Errorf("recognition stream is stopped")
	}

	s.seqNo++
	if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

func (s *speechmaticsStream) Results() <-chan Result {
	return s.results
}

// Stop signals end of stream and closes the connection. The results channel
// closes once the server acknowledges or the read loop ends.
func (s *speechmaticsStream) Stop() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)

	endMsg := endOfStreamMessage{Message: "EndOfStream", LastSeqNo: s.seqNo}
	if err := s.conn.WriteJSON(endMsg); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to send EndOfStream: %w", err)
	}

	return s.conn.Close()
}
