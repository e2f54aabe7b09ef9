package relay

import (
	"time"

	"parley/segment"
	"parley/stt"
)

// pipeline owns one speaker's recognition stream and segmenter. It is
// created when the participant joins and destroyed when they leave.
type pipeline struct {
	participant *Participant
	stream      stt.SpeechRecognizer
	seg         *segment.Segmenter

	flushTimeout time.Duration
	stopped      chan struct{}
}

func newPipeline(
	p *Participant,
	stream stt.SpeechRecognizer,
	flushTimeout time.Duration,
) *pipeline {
	return &pipeline{
		participant:  p,
		stream:       stream,
		flushTimeout: flushTimeout,
		stopped:      make(chan struct{}),
	}
}

// run wires the recognition stream into the segmenter and the segmenter
// into the registry's orchestrator, then starts pumping results.
func (pl *pipeline) run(sessionID string, r *Registry) {
	pl.seg = segment.New(pl.flushTimeout, func(utterance string) {
		r.handleUtterance(sessionID, pl.participant, utterance)
	})

	go func() {
		for result := range pl.stream.Results() {
			select {
			case <-pl.stopped:
				return
			default:
			}

			if result.IsFinal {
				pl.seg.Push(result.Text)
			} else {
				r.deliverPartial(sessionID, pl.participant, result.Text)
			}
		}
	}()
}

func (pl *pipeline) sendAudio(pcm []byte) error {
	return pl.stream.SendAudio(pcm)
}

// stop releases the upstream recognition connection and discards any
// buffered fragments. In-flight translation tasks finish on their own and
// their results are dropped at delivery time.
func (pl *pipeline) stop() {
	select {
	case <-pl.stopped:
		return
	default:
		close(pl.stopped)
	}

	if pl.seg != nil {
		pl.seg.Stop()
	}
	// The stream may already be gone; a failed stop changes nothing.
	_ = pl.stream.Stop()
}
