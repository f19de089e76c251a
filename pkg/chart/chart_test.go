package chart

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notesAt(times ...float64) []Note {
	notes := make([]Note, len(times))
	for i, t := range times {
		notes[i] = NewNote(t, i)
	}
	return notes
}

func noteTimes(notes []Note) []float64 {
	times := make([]float64, len(notes))
	for i, n := range notes {
		times[i] = n.Time
	}
	return times
}

func TestNewFillsPlaceholders(t *testing.T) {
	c := New(nil, nil)

	assert.Equal(t, Version, c.Version)
	assert.Equal(t, int64(0), c.CustomData.Time)
	assert.NotNil(t, c.Notes)
	assert.NotNil(t, c.CustomData.BPMChanges)
	assert.NotNil(t, c.CustomData.Bookmarks)
	assert.NotNil(t, c.Events)
	assert.NotNil(t, c.Obstacles)
}

func TestNewNoteFixedAttributes(t *testing.T) {
	n := NewNote(2.5, 3)

	assert.Equal(t, 2.5, n.Time)
	assert.Equal(t, int64(3), n.LineIndex)
	assert.Equal(t, int64(1), n.LineLayer)
	assert.Equal(t, int64(0), n.Type)
	assert.Equal(t, int64(1), n.CutDirection)
}

func TestMergeOrdersNotes(t *testing.T) {
	a := New(notesAt(1.0, 3.0), []TempoChange{{BPM: 120, BeatsPerBar: 4, MetronomeOffset: 4}})
	b := New(notesAt(0.5, 2.0), []TempoChange{{BPM: 90, BeatsPerBar: 3, MetronomeOffset: 3}})

	merged, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 1.0, 2.0, 3.0}, noteTimes(merged.Notes))
	assert.Equal(t, a.CustomData.BPMChanges, merged.CustomData.BPMChanges)
}

func TestMergeKeepsConcatenationOrderOnTies(t *testing.T) {
	a := New([]Note{NewNote(1, 0)}, nil)
	b := New([]Note{NewNote(1, 1)}, nil)
	c := New([]Note{NewNote(0, 2), NewNote(1, 2)}, nil)

	merged, err := Merge(a, b, c)
	require.NoError(t, err)

	var lanes []int64
	for _, n := range merged.Notes {
		lanes = append(lanes, n.LineIndex)
	}
	assert.Equal(t, []int64{2, 0, 1, 2}, lanes)
}

func TestMergeDoesNotTouchInputs(t *testing.T) {
	a := New(notesAt(2.0), []TempoChange{{BPM: 120}})
	b := New(notesAt(1.0), nil)

	merged, err := Merge(a, b)
	require.NoError(t, err)
	merged.CustomData.BPMChanges[0].BPM = 60

	assert.Len(t, a.Notes, 1)
	assert.Equal(t, 120.0, a.CustomData.BPMChanges[0].BPM)
}

func TestMergeErrors(t *testing.T) {
	tests := []struct {
		name   string
		charts []Chart
		want   error
	}{
		{"no charts", nil, ErrNoCharts},
		{"NaN time", []Chart{New(notesAt(1.0, math.NaN()), nil)}, ErrUnorderedTimes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(tt.charts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeFieldNamesAndOrder(t *testing.T) {
	c := New(notesAt(0), []TempoChange{{BPM: 120, Time: 0, BeatsPerBar: 4, MetronomeOffset: 4}})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, c))
	out := buf.String()

	order := []string{`"_version"`, `"_customData"`, `"_time"`, `"_BPMChanges"`, `"_BPM"`,
		`"_beatsPerBar"`, `"_metronomeOffset"`, `"_bookmarks"`, `"_events"`, `"_notes"`,
		`"_lineIndex"`, `"_lineLayer"`, `"_type"`, `"_cutDirection"`, `"_obstacles"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(out[last+1:], key)
		require.GreaterOrEqual(t, idx, 0, "key %s missing or out of order", key)
		last += idx + 1
	}
}

func TestEncodeEmptyListsAsArrays(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Chart{}))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))

	for _, key := range []string{"_events", "_notes", "_obstacles"} {
		assert.Equal(t, []any{}, raw[key], key)
	}
	custom := raw["_customData"].(map[string]any)
	assert.Equal(t, []any{}, custom["_BPMChanges"])
	assert.Equal(t, []any{}, custom["_bookmarks"])
	assert.Equal(t, Version, raw["_version"])
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Easy.dat")
	c := New(notesAt(0, 0.25, 1.5), []TempoChange{{BPM: 150, Time: 0, BeatsPerBar: 3, MetronomeOffset: 3}})

	require.NoError(t, WriteFile(path, c))
	got, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, c, got)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFile(filepath.Join(dir, "missing.dat"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.dat")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = ReadFile(bad)
	assert.Error(t, err)
}

func TestLanes(t *testing.T) {
	assert.Equal(t, 0, New(nil, nil).Lanes())
	assert.Equal(t, 4, New([]Note{NewNote(0, 3), NewNote(1, 0)}, nil).Lanes())
}
