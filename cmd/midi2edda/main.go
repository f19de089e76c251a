// Package main is the entry point for midi2edda CLI
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/midi2edda/pkg/api"
	"github.com/james-see/midi2edda/pkg/chart"
	"github.com/james-see/midi2edda/pkg/config"
	"github.com/james-see/midi2edda/pkg/converter"
	"github.com/james-see/midi2edda/pkg/preview"
	"github.com/james-see/midi2edda/pkg/tui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile string
	configPath string
	verbose    bool
	quiet      bool
	serverPort int
	workers    int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midi2edda",
	Short: "Convert MIDI drum tracks into Edda rhythm game charts",
	Long: `midi2edda converts the drum tracks of a standard MIDI file into
Edda difficulty charts (.dat JSON). Each configured MIDI pitch becomes one lane.

Examples:
  midi2edda convert song.mid -o Easy.dat
  midi2edda auto song.mid charts/
  midi2edda configure
  midi2edda preview song.mid -o song.png
  midi2edda tui
  midi2edda serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose && quiet {
			return errors.New("--verbose and --quiet are mutually exclusive")
		}
		switch {
		case verbose:
			logrus.SetLevel(logrus.DebugLevel)
		case quiet:
			logrus.SetLevel(logrus.ErrorLevel)
		}
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.mid> [output]",
	Short: "Convert a MIDI file into a single chart",
	Long:  `Merges the notes of every drum track into one chart. The output path is the second argument or --output.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runConvert,
}

var autoCmd = &cobra.Command{
	Use:   "auto <input.mid> <output-folder>",
	Short: "Convert each track into its own chart",
	Long:  `Writes one chart per drum track into the output folder, named after the track with the configured batch extension.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runAuto,
}

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively set the drum map and batch extension",
	Args:  cobra.NoArgs,
	RunE:  runConfigure,
}

var previewCmd = &cobra.Command{
	Use:   "preview <input>",
	Short: "Render a PNG preview of a MIDI file or chart",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output chart path")

	// auto command
	autoCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Tracks converted at once (default: number of CPUs)")

	// preview command
	previewCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .png path")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(autoCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load(configPath)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

func newConverter(cfg *config.Config) *converter.Converter {
	return converter.New(cfg.Drums(), converter.WithWorkers(workers))
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	input := args[0]
	output := outputFile
	if len(args) == 2 {
		output = args[1]
	}
	if output == "" {
		return errors.New("no output path: pass it as the second argument or with --output")
	}

	if err := newConverter(cfg).ConvertFile(input, output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Writing to %s ...\n", output)
	return nil
}

func runAuto(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	written, err := newConverter(cfg).ConvertToDir(args[0], args[1], cfg.BatchOutputExtension)
	for _, path := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "Writing to %s ...\n", path)
	}
	return err
}

func runConfigure(cmd *cobra.Command, args []string) error {
	next, err := config.Prompt(cmd.InOrStdin(), cmd.OutOrStdout(), config.Load(configPath))
	if err != nil {
		return err
	}
	if err := next.Save(configPath); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", configPath)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	input := args[0]
	c, err := readChart(cfg, input)
	if err != nil {
		return err
	}

	output := getOutputPath(input, ".png")
	img := preview.Render(c, len(cfg.DrumMap), preview.DefaultOptions())
	if err := preview.SavePNG(output, img); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Writing to %s ...\n", output)
	return nil
}

// readChart loads a chart file as is or converts a MIDI file into a single chart
func readChart(cfg *config.Config, input string) (chart.Chart, error) {
	format := converter.DetectFormat(input)
	if format == converter.FormatUnknown {
		data, err := os.ReadFile(input)
		if err != nil {
			return chart.Chart{}, err
		}
		format = converter.DetectFormatFromContent(data)
	}

	switch format {
	case converter.FormatChart:
		return chart.ReadFile(input)
	case converter.FormatMIDI:
		song, err := converter.ReadFile(input)
		if err != nil {
			return chart.Chart{}, err
		}
		c, _, err := newConverter(cfg).ConvertSong(song)
		return c, err
	default:
		return chart.Chart{}, fmt.Errorf("unsupported input format: %s", input)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return tui.Run(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort, cfg)
}
