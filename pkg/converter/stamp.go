package converter

import (
	"fmt"
	"os"
	"strings"
)

// fallbackTitles names note tracks without a track name event, by position
var fallbackTitles = []string{"Easy", "Normal", "Hard"}

// Stamp converts delta times into absolute ticks starting at 0
func Stamp(events []RawEvent) []StampedEvent {
	stamped := make([]StampedEvent, len(events))
	var tick uint64
	for i, ev := range events {
		tick += uint64(ev.Delta)
		stamped[i] = StampedEvent{Tick: tick, Payload: ev.Payload}
	}
	return stamped
}

// IsDataTrack reports whether a track carries no note-on or note-off events.
// Meta events do not count, however many there are.
func IsDataTrack(events []StampedEvent) bool {
	for _, ev := range events {
		switch ev.Payload.(type) {
		case NoteOn, NoteOff:
			return false
		}
	}
	return true
}

// ExtractMeta pools the tempo and time signature events of all tracks,
// keeping their absolute ticks. Events are collected in track order.
func ExtractMeta(tracks [][]StampedEvent) []StampedEvent {
	var pool []StampedEvent
	for _, track := range tracks {
		for _, ev := range track {
			switch ev.Payload.(type) {
			case Tempo, TimeSignature:
				pool = append(pool, ev)
			}
		}
	}
	return pool
}

// TrackTitle names a note track: its track name when present, otherwise a
// difficulty picked by the track's position among note tracks.
func TrackTitle(name string, position int) string {
	if name != "" {
		return name
	}
	if position >= 0 && position < len(fallbackTitles) {
		return fallbackTitles[position]
	}
	return "OutOfBounds"
}

// uniqueTitles suffixes repeated titles ("Hard", "Hard-2", ...) so that
// per-track output files do not overwrite each other. Titles are compared by
// their file name form, and a suffix never takes a name another track already
// carries.
func uniqueTitles(titles []string) []string {
	reserved := make(map[string]bool, len(titles))
	for _, t := range titles {
		reserved[fileSafe(t)] = true
	}

	used := make(map[string]bool, len(titles))
	out := make([]string, len(titles))
	for i, t := range titles {
		if key := fileSafe(t); !used[key] {
			used[key] = true
			out[i] = t
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s-%d", t, n)
			key := fileSafe(candidate)
			if !used[key] && !reserved[key] {
				used[key] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// fileSafe replaces path separators so a title can be used as a file name
func fileSafe(title string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, title)
}
