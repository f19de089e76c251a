// Package tui provides a terminal user interface for midi2edda
package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/midi2edda/pkg/config"
	"github.com/james-see/midi2edda/pkg/converter"
	"github.com/sirupsen/logrus"
)

// Drum pad color scheme
var (
	padOrange = lipgloss.Color("#FF8C1A")
	padCyan   = lipgloss.Color("#3DDCFF")
	lightGray = lipgloss.Color("#D0D0D0")
	darkGray  = lipgloss.Color("#2A2A2A")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(padOrange).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(lightGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(padOrange).
			Bold(true).
			PaddingLeft(2)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(padCyan).
				PaddingLeft(4)

	statusStyle = lipgloss.NewStyle().
			Foreground(padCyan).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF3B3B")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(padOrange).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(padOrange).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateDifficulty
	StateFilePicker
	StateConverting
	StateResult
)

// Mode is what the selected MIDI file is converted into
type Mode int

const (
	ModeSingle Mode = iota
	ModeTracks
	ModeExit
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	Mode        Mode
}

var menuItems = []MenuItem{
	{Title: "Single chart", Description: "Merge every drum track into one difficulty chart", Mode: ModeSingle},
	{Title: "Chart per track", Description: "Write one chart per track, named after the track", Mode: ModeTracks},
	{Title: "Exit", Description: "Exit the application", Mode: ModeExit},
}

// Difficulties offered for a single chart
var Difficulties = []string{"Easy", "Normal", "Hard"}

// Model represents the TUI model
type Model struct {
	state           State
	menuIndex       int
	difficultyIndex int
	filePicker      filepicker.Model
	spinner         spinner.Model
	conv            *converter.Converter
	ext             string
	mode            Mode
	selectedFile    string
	written         []string
	err             error
	width           int
	height          int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	written []string
	err     error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model. Conversion logs go to log; a nil logger
// discards them so they do not draw over the screen.
func New(cfg *config.Config, log *logrus.Logger) Model {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(padOrange)

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		conv:       converter.New(cfg.Drums(), converter.WithLogger(log)),
		ext:        cfg.BatchOutputExtension,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive every message while it is shown
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateDifficulty:
			return m.updateDifficulty(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.written = msg.written
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		m.mode = menuItems[m.menuIndex].Mode
		switch m.mode {
		case ModeExit:
			return m, tea.Quit
		case ModeSingle:
			m.state = StateDifficulty
			return m, nil
		}
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateDifficulty(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.difficultyIndex > 0 {
			m.difficultyIndex--
		}
	case "down", "j":
		if m.difficultyIndex < len(Difficulties)-1 {
			m.difficultyIndex++
		}
	case "enter":
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "esc":
		m.state = StateMenu
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.written = nil
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// performConversion writes the charts next to the selected file
func (m Model) performConversion() tea.Cmd {
	input := m.selectedFile
	dir := filepath.Dir(input)
	conv, ext := m.conv, m.ext

	if m.mode == ModeTracks {
		return func() tea.Msg {
			written, err := conv.ConvertToDir(input, dir, ext)
			return conversionDoneMsg{written: written, err: err}
		}
	}

	output := filepath.Join(dir, converter.OutputName(Difficulties[m.difficultyIndex], ext))
	return func() tea.Msg {
		if err := conv.ConvertFile(input, output); err != nil {
			return conversionDoneMsg{err: err}
		}
		return conversionDoneMsg{written: []string{output}}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(logo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateDifficulty:
		s.WriteString(m.viewDifficulty())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT OUTPUT "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(descriptionStyle.Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewDifficulty() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT DIFFICULTY "))
	s.WriteString("\n\n")

	for i, d := range Difficulties {
		if i == m.difficultyIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", d)))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", d)))
		}
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CONVERTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	if m.mode == ModeTracks {
		s.WriteString(statusStyle.Render("  one chart per track"))
	} else {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  single %s chart", Difficulties[m.difficultyIndex])))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil && len(m.written) == 0:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	case m.err != nil:
		s.WriteString(titleStyle.Render(" PARTIAL "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Some tracks failed: %s", m.err.Error())))
		s.WriteString("\n\n")
		s.WriteString(m.viewWritten())
	default:
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(m.viewWritten())
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func (m Model) viewWritten() string {
	var s strings.Builder
	s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
	for i, path := range m.written {
		label := "        "
		if i == 0 {
			label = "Output: "
		}
		s.WriteString(label + filepath.Base(path))
		if i < len(m.written)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func logo() string {
	return lipgloss.NewStyle().
		Foreground(padOrange).
		Bold(true).
		Padding(1, 2).
		Render("▌▌ M I D I 2 E D D A ▐▐")
}

// Run starts the TUI application
func Run(cfg *config.Config) error {
	p := tea.NewProgram(New(cfg, nil), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
