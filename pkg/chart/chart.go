// Package chart defines the Edda difficulty chart document
package chart

// Version is the schema version written into every chart
const Version = "1"

// Fixed note attributes
const (
	NoteLayer        = 1
	NoteType         = 0
	NoteCutDirection = 1
)

// Chart is the root of a <Difficulty>.dat document. Field order is part of
// the file format.
type Chart struct {
	Version    string     `json:"_version"`
	CustomData CustomData `json:"_customData"`
	Events     []any      `json:"_events"`
	Notes      []Note     `json:"_notes"`
	Obstacles  []any      `json:"_obstacles"`
}

// CustomData holds the editor specific part of a chart
type CustomData struct {
	Time       int64         `json:"_time"`
	BPMChanges []TempoChange `json:"_BPMChanges"`
	Bookmarks  []any         `json:"_bookmarks"`
}

// TempoChange is a tempo and meter change at a beat position
type TempoChange struct {
	BPM             float64 `json:"_BPM"`
	Time            float64 `json:"_time"`
	BeatsPerBar     int64   `json:"_beatsPerBar"`
	MetronomeOffset int64   `json:"_metronomeOffset"`
}

// Note is a single hit at a beat position
type Note struct {
	Time         float64 `json:"_time"`
	LineIndex    int64   `json:"_lineIndex"`
	LineLayer    int64   `json:"_lineLayer"`
	Type         int64   `json:"_type"`
	CutDirection int64   `json:"_cutDirection"`
}

// NewNote returns a note on the given lane with the fixed layer, type and cut direction
func NewNote(time float64, lane int) Note {
	return Note{
		Time:         time,
		LineIndex:    int64(lane),
		LineLayer:    NoteLayer,
		Type:         NoteType,
		CutDirection: NoteCutDirection,
	}
}

// New assembles a chart from a track's notes and tempo changes
func New(notes []Note, changes []TempoChange) Chart {
	if notes == nil {
		notes = []Note{}
	}
	if changes == nil {
		changes = []TempoChange{}
	}
	return Chart{
		Version: Version,
		CustomData: CustomData{
			Time:       0,
			BPMChanges: changes,
			Bookmarks:  []any{},
		},
		Events:    []any{},
		Notes:     notes,
		Obstacles: []any{},
	}
}

// Lanes returns one more than the highest lane index used, or 0 for an empty chart
func (c Chart) Lanes() int {
	lanes := 0
	for _, n := range c.Notes {
		if int(n.LineIndex)+1 > lanes {
			lanes = int(n.LineIndex) + 1
		}
	}
	return lanes
}
