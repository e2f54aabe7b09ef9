package wire

import (
	"fmt"
)

// AudioKind tags a binary frame so one channel can carry both
// speaker-originated and relay-originated audio.
type AudioKind byte

const (
	KindMic    AudioKind = 0x01
	KindDubbed AudioKind = 0x02
)

// Mic input is 16 kHz mono s16le; dubbed output is 24 kHz mono s16le.
const (
	MicSampleRate    = 16000
	DubbedSampleRate = 24000
)

// AudioFrame is one binary frame on the wire:
//
//	[1 byte kind][1 byte speaker id length][speaker id][raw PCM]
type AudioFrame struct {
	Kind      AudioKind
	SpeakerID string
	PCM       []byte
}

const frameHeaderLen = 2

// EncodeAudioFrame serializes a frame. Speaker ids longer than 255 bytes
// cannot be represented in the length prefix.
func EncodeAudioFrame(kind AudioKind, speakerID string, pcm []byte) ([]byte, error) {
	if len(speakerID) > 255 {
		return nil, fmt.Errorf("speaker id too long: %d bytes", len(speakerID))
	}

	buf := make([]byte, 0, frameHeaderLen+len(speakerID)+len(pcm))
	buf = append(buf, byte(kind), byte(len(speakerID)))
	buf = append(buf, speakerID...)
	buf = append(buf, pcm...)
	return buf, nil
}

// DecodeAudioFrame parses a binary frame. A truncated frame is a protocol
// error for the sender, never a reason to drop the connection.
func DecodeAudioFrame(data []byte) (AudioFrame, error) {
	if len(data) < frameHeaderLen {
		return AudioFrame{}, fmt.Errorf("frame too short: %d bytes", len(data))
	}

	kind := AudioKind(data[0])
	if kind != KindMic && kind != KindDubbed {
		return AudioFrame{}, fmt.Errorf("unknown audio kind: 0x%02x", data[0])
	}

	idLen := int(data[1])
	if frameHeaderLen+idLen > len(data) {
		return AudioFrame{}, fmt.Errorf(
			"declared speaker id length %d exceeds frame size %d",
			idLen,
			len(data),
		)
	}

	return AudioFrame{
		Kind:      kind,
		SpeakerID: string(data[frameHeaderLen : frameHeaderLen+idLen]),
		PCM:       data[frameHeaderLen+idLen:],
	}, nil
}
