package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompt asks for a new value for every drum map position and for the batch
// output extension, re-asking until each answer parses. It returns the edited
// copy and leaves cfg untouched. Running out of input is an error.
func Prompt(in io.Reader, out io.Writer, cfg *Config) (*Config, error) {
	next := &Config{
		DrumMap:              append([]int(nil), cfg.DrumMap...),
		BatchOutputExtension: cfg.BatchOutputExtension,
	}
	scanner := bufio.NewScanner(in)

	readLine := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	fmt.Fprintln(out, "Midi Pitch Config:")
	for i, current := range next.DrumMap {
		for {
			fmt.Fprintf(out, "Position [%d] is currently set to <%d>. Please enter the new value: ", i, current)
			line, err := readLine()
			if err != nil {
				return nil, err
			}
			pitch, err := strconv.ParseUint(line, 10, 8)
			if err != nil || pitch > 127 {
				fmt.Fprintf(out, "%q is not a MIDI pitch (0-127)\n", line)
				continue
			}
			next.DrumMap[i] = int(pitch)
			break
		}
	}

	fmt.Fprintln(out, "Output Extension:")
	for {
		fmt.Fprintf(out, "Current batch extension is <%s>. Please enter the new value: ", next.BatchOutputExtension)
		line, err := readLine()
		if err != nil {
			return nil, err
		}
		if line == "" {
			fmt.Fprintln(out, "the extension cannot be empty")
			continue
		}
		next.BatchOutputExtension = line
		break
	}
	return next, nil
}
