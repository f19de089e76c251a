package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/james-see/midi2edda/pkg/chart"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoTracks is returned for a file without any track
	ErrNoTracks = errors.New("no tracks")
	// ErrNoNoteTracks is returned when every track is a data track
	ErrNoNoteTracks = errors.New("no tracks with notes")
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatChart   Format = "chart"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".dat", ".json":
		return FormatChart
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	trimmed := strings.TrimLeft(string(data[:min(len(data), 64)]), " \t\r\n")
	if strings.HasPrefix(trimmed, "{") {
		return FormatChart
	}
	return FormatUnknown
}

// Converter converts songs into charts using a drum map
type Converter struct {
	drums   DrumMap
	log     *logrus.Logger
	workers int
}

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the logger used for warnings and per-track failures
func WithLogger(log *logrus.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// WithWorkers limits how many tracks are converted at once in per-track mode
func WithWorkers(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a Converter. The drum map is copied and never modified.
func New(drums DrumMap, opts ...Option) *Converter {
	c := &Converter{
		drums:   append(DrumMap(nil), drums...),
		log:     logrus.StandardLogger(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Drums returns a copy of the drum map in use
func (c *Converter) Drums() DrumMap {
	return append(DrumMap(nil), c.drums...)
}

// NoteTrack is a note-bearing track ready for conversion
type NoteTrack struct {
	Index  int // position in the file
	Title  string
	Events []StampedEvent
}

// Plan is a song prepared for conversion: note tracks plus the shared meta pool.
// It is read-only once built.
type Plan struct {
	Timing     Timing
	Tracks     []NoteTrack
	Meta       []StampedEvent
	DataTracks int
}

// Prepare stamps every track, splits data tracks from note tracks and pools
// the tempo and time signature events of all of them.
func Prepare(song *Song) (*Plan, error) {
	if song == nil || len(song.Tracks) == 0 {
		return nil, ErrNoTracks
	}

	stamped := make([][]StampedEvent, len(song.Tracks))
	for i, track := range song.Tracks {
		stamped[i] = Stamp(track.Events)
	}

	plan := &Plan{
		Timing: song.Timing,
		Meta:   ExtractMeta(stamped),
	}

	var titles []string
	for i, events := range stamped {
		if IsDataTrack(events) {
			plan.DataTracks++
			continue
		}
		titles = append(titles, TrackTitle(song.Tracks[i].Name(), len(plan.Tracks)))
		plan.Tracks = append(plan.Tracks, NoteTrack{Index: i, Events: events})
	}
	for i, title := range uniqueTitles(titles) {
		plan.Tracks[i].Title = title
	}
	return plan, nil
}

// ConvertTrack merges the plan's meta pool into one note track and converts it
func (c *Converter) ConvertTrack(plan *Plan, track NoteTrack) (chart.Chart, []Warning, error) {
	res, err := Convert(MergeMeta(track.Events, plan.Meta), plan.Timing, c.drums)
	if err != nil {
		return chart.Chart{}, nil, fmt.Errorf("track %d (%s): %w", track.Index, track.Title, err)
	}
	for i := range res.Warnings {
		res.Warnings[i].Track = track.Title
	}
	c.logWarnings(res.Warnings)
	c.log.WithFields(logrus.Fields{
		"track":  track.Title,
		"notes":  len(res.Notes),
		"tempos": len(res.TempoChanges),
		"length": res.Length,
	}).Debug("Converted track")
	return chart.New(res.Notes, res.TempoChanges), res.Warnings, nil
}

// ConvertSong converts every note track and merges them into a single chart.
// Any track failure fails the whole conversion.
func (c *Converter) ConvertSong(song *Song) (chart.Chart, []Warning, error) {
	plan, err := Prepare(song)
	if err != nil {
		return chart.Chart{}, nil, err
	}
	if len(plan.Tracks) == 0 {
		return chart.Chart{}, nil, ErrNoNoteTracks
	}

	charts := make([]chart.Chart, 0, len(plan.Tracks))
	var warnings []Warning
	for _, track := range plan.Tracks {
		ch, w, err := c.ConvertTrack(plan, track)
		if err != nil {
			return chart.Chart{}, nil, err
		}
		charts = append(charts, ch)
		warnings = append(warnings, w...)
	}

	merged, err := chart.Merge(charts...)
	if err != nil {
		return chart.Chart{}, nil, err
	}
	return merged, warnings, nil
}

// TrackChart is the outcome of converting one note track in per-track mode
type TrackChart struct {
	Index    int
	Title    string
	Chart    chart.Chart
	Warnings []Warning
	Err      error
}

// ConvertTracks converts each note track into its own chart. Tracks are
// converted concurrently; a failing track is logged and reported in its
// TrackChart without stopping the others. Results keep track order.
func (c *Converter) ConvertTracks(song *Song) ([]TrackChart, error) {
	plan, err := Prepare(song)
	if err != nil {
		return nil, err
	}
	if len(plan.Tracks) == 0 {
		return nil, ErrNoNoteTracks
	}

	results := make([]TrackChart, len(plan.Tracks))
	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, track := range plan.Tracks {
		g.Go(func() error {
			ch, warnings, err := c.ConvertTrack(plan, track)
			results[i] = TrackChart{
				Index:    track.Index,
				Title:    track.Title,
				Chart:    ch,
				Warnings: warnings,
				Err:      err,
			}
			if err != nil {
				c.log.WithError(err).WithField("track", track.Title).Error("Track conversion failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// ConvertFile converts a MIDI file into a single chart written to outputPath
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	song, err := c.readMIDI(inputPath)
	if err != nil {
		return err
	}

	merged, _, err := c.ConvertSong(song)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := chart.WriteFile(outputPath, merged); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// ConvertToDir converts a MIDI file into one chart per note track, written to
// dir as <title><ext>. It returns the written paths. Failed tracks are
// skipped; the returned error joins their errors.
func (c *Converter) ConvertToDir(inputPath, dir, ext string) ([]string, error) {
	song, err := c.readMIDI(inputPath)
	if err != nil {
		return nil, err
	}

	results, err := c.ConvertTracks(song)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	var written []string
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		path := filepath.Join(dir, OutputName(res.Title, ext))
		if err := chart.WriteFile(path, res.Chart); err != nil {
			c.log.WithError(err).WithField("path", path).Error("Failed to write chart")
			errs = append(errs, err)
			continue
		}
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

// OutputName builds a chart file name from a title and an extension,
// replacing path separators in the title.
func OutputName(title, ext string) string {
	return fileSafe(title) + ext
}

func (c *Converter) readMIDI(inputPath string) (*Song, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	format := DetectFormat(inputPath)
	if format == FormatUnknown {
		format = DetectFormatFromContent(data)
	}
	if format != FormatMIDI {
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
	return Decode(data)
}

func (c *Converter) logWarnings(warnings []Warning) {
	for _, w := range warnings {
		entry := c.log.WithFields(logrus.Fields{
			"track": w.Track,
			"beat":  w.Beat,
		})
		if w.Kind == WarnUnmappedPitch {
			entry = entry.WithFields(logrus.Fields{"pitch": w.Pitch, "count": w.Count})
		}
		entry.Warn(w.Message)
	}
}
