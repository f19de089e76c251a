package converter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadFile reads and decodes a MIDI file
func ReadFile(filename string) (*Song, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return Decode(data)
}

// Decode parses MIDI data into a Song
func Decode(data []byte) (*Song, error) {
	return DecodeFrom(bytes.NewReader(data))
}

// DecodeFrom parses MIDI data from r into a Song
func DecodeFrom(r io.Reader) (song *Song, err error) {
	// smf panics on some malformed files instead of returning an error
	defer func() {
		if rec := recover(); rec != nil {
			song = nil
			err = fmt.Errorf("failed to parse MIDI: %v", rec)
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	if s == nil {
		return nil, errors.New("failed to parse MIDI: empty result")
	}

	song = &Song{Tracks: make([]Track, 0, len(s.Tracks))}

	switch tf := s.TimeFormat.(type) {
	case smf.MetricTicks:
		song.Timing = MetricalTiming(tf.Resolution())
	case smf.TimeCode:
		song.Timing = Timing{FramesPerSecond: tf.FramesPerSecond, SubFrames: tf.SubFrames}
	default:
		return nil, fmt.Errorf("failed to parse MIDI: unsupported time format %v", s.TimeFormat)
	}

	for _, track := range s.Tracks {
		events := make([]RawEvent, len(track))
		for i, ev := range track {
			events[i] = RawEvent{Delta: ev.Delta, Payload: decodeMessage(ev.Message)}
		}
		song.Tracks = append(song.Tracks, Track{Events: events})
	}
	return song, nil
}

func decodeMessage(msg smf.Message) Payload {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return NoteOn{Channel: ch, Key: key, Velocity: vel}
	case msg.GetNoteOff(&ch, &key, &vel):
		return NoteOff{Channel: ch, Key: key, Velocity: vel}
	case msg.Is(smf.MetaTempoMsg):
		return decodeTempo(msg)
	}

	var num, denom, clocks, thirtySeconds uint8
	if msg.GetMetaTimeSig(&num, &denom, &clocks, &thirtySeconds) {
		return TimeSignature{
			Numerator:               num,
			Denominator:             denom,
			ClocksPerClick:          clocks,
			ThirtySecondsPerQuarter: thirtySeconds,
		}
	}

	var name string
	if msg.GetMetaTrackName(&name) {
		return TrackName{Name: name}
	}
	return Other{}
}

// decodeTempo reads microseconds per quarter note from the raw meta event
// (FF 51 03 tt tt tt). A truncated event decodes to a zero tempo, which the
// timing conversion rejects.
func decodeTempo(msg smf.Message) Tempo {
	if len(msg) < 6 || msg[2] != 0x03 {
		return Tempo{}
	}
	return Tempo{MicrosPerQuarter: uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])}
}
