package web

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"parley/wire"
)

// AudioQueueLimit caps how many audio bytes may sit unsent on one
// connection. Beyond it, new audio is dropped: a listener that cannot keep
// up loses sound, not transcripts.
const AudioQueueLimit = 64 * 1024

// wsConn is the slice of *websocket.Conn the sender needs.
type wsConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type outbound struct {
	msg     wire.Message
	isAudio bool
	frame   []byte
}

// sender serializes all writes to one websocket connection through a single
// goroutine. Control messages always queue; audio frames are dropped once
// the outstanding audio bytes exceed AudioQueueLimit.
type sender struct {
	conn   wsConn
	logger *log.Logger

	queue       chan outbound
	audioQueued atomic.Int64
	dropped     atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

func newSender(conn wsConn, logger *log.Logger) *sender {
	s := &sender{
		conn:   conn,
		logger: logger,
		queue:  make(chan outbound, 256),
		done:   make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

func (s *sender) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case out := <-s.queue:
			var err error
			if out.isAudio {
				err = s.conn.WriteMessage(websocket.BinaryMessage, out.frame)
				s.audioQueued.Add(-int64(len(out.frame)))
			} else {
				err = s.conn.WriteJSON(out.msg)
			}
			if err != nil {
				s.logger.Debug("write failed, closing sender", "error", err)
				s.close()
				return
			}
		}
	}
}

// SendJSON queues a control message. It blocks rather than drop when the
// queue is full, and fails only once the connection is gone.
func (s *sender) SendJSON(msg wire.Message) error {
	select {
	case <-s.done:
		return fmt.Errorf("connection closed")
	default:
	}

	select {
	case s.queue <- outbound{msg: msg}:
		return nil
	case <-s.done:
		return fmt.Errorf("connection closed")
	}
}

// SendAudio queues an encoded audio frame, dropping it when the connection
// already has AudioQueueLimit bytes of audio waiting.
func (s *sender) SendAudio(frame []byte) error {
	select {
	case <-s.done:
		return fmt.Errorf("connection closed")
	default:
	}

	if s.audioQueued.Load()+int64(len(frame)) > AudioQueueLimit {
		s.dropped.Add(1)
		return nil
	}

	s.audioQueued.Add(int64(len(frame)))
	select {
	case s.queue <- outbound{isAudio: true, frame: frame}:
		return nil
	case <-s.done:
		s.audioQueued.Add(-int64(len(frame)))
		return fmt.Errorf("connection closed")
	default:
		// Queue full of control traffic; treat like backpressure.
		s.audioQueued.Add(-int64(len(frame)))
		s.dropped.Add(1)
		return nil
	}
}

// DroppedFrames reports how many audio frames backpressure discarded.
func (s *sender) DroppedFrames() int64 {
	return s.dropped.Load()
}

func (s *sender) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if dropped := s.dropped.Load(); dropped > 0 {
			s.logger.Info("connection closed with dropped audio", "frames", dropped)
		}
		s.conn.Close()
	})
}
