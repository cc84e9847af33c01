// Package main provides the entry point for the alphapresenter CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alphapresenter/alphapresenter/playback"
	"github.com/alphapresenter/alphapresenter/playback/engine"
	"github.com/alphapresenter/alphapresenter/store"
	"github.com/alphapresenter/alphapresenter/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	libraryDir   string
	engineName   string
	silent       bool
	debug        bool
	validateOnly bool

	rootCmd = &cobra.Command{
		Use:          "alphapresenter [PLAYLIST]",
		Short:        "Play slideshow playlists with timed text and mixed audio",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         execute,
	}
)

func execute(_ *cobra.Command, args []string) error {
	cfg, err := playback.LoadConfigFromViper()
	if err != nil {
		return err
	}
	if libraryDir != "" {
		cfg.LibraryDir = libraryDir
	}
	if engineName != "" {
		cfg.Engine = engineName
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if silent {
		cfg.Engine = "mock"
	}
	if cfg.LibraryDir == "" {
		return fmt.Errorf("no library directory; set --library or playback.library_dir")
	}
	if debug || cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	logger := log.Default()
	lib, err := store.New(cfg.LibraryDir, logger)
	if err != nil {
		return err
	}

	playlistName := args[0]
	playlist, err := lib.LoadPlaylist(playlistName)
	if err != nil {
		return fmt.Errorf("loading playlist %q: %w", playlistName, err)
	}

	issues := lib.ValidatePlaylist(playlist)
	for _, issue := range issues {
		for _, desc := range issue.Descriptions {
			logger.Warn("playlist issue", "slide", issue.Index+1, "issue", desc)
		}
	}
	if validateOnly {
		if len(issues) > 0 {
			return fmt.Errorf("playlist %q has %d slides with issues", playlistName, len(issues))
		}
		fmt.Printf("playlist %q: %d slides, no issues\n", playlistName, len(playlist.Slides))
		return nil
	}

	programEngine, voiceEngine, err := buildEngines(cfg)
	if err != nil {
		return err
	}

	sink := ui.NewTerminalSink()
	sequencer := playback.NewSentenceSequencer(lib, sink, logger)
	programPlayer := playback.NewProgramPlayer(programEngine, lib, logger)
	slideAudio := playback.NewSlideAudioPlayer(programPlayer, logger)
	slideAudio.SetNeutralVolume(cfg.ProgramVolume)
	voiceOver := playback.NewVoiceOverPlayer(voiceEngine, lib, logger)
	voiceOver.SetDefaultVolume(cfg.VoiceOverVolume)
	coordinator := playback.NewCoordinator(sequencer, slideAudio, sink, logger)
	coordinator.SetPlaylist(playlist.Slides)

	presenter := ui.NewPresenter(coordinator, voiceOver)
	presenter.SetVoiceOverCue(cfg.VoiceOverCue)
	program := tea.NewProgram(presenter, tea.WithAltScreen())

	sink.Attach(program.Send)
	coordinator.OnSlideChanged(func(index int) {
		program.Send(playback.SlideChangedMsg{Index: index, Total: coordinator.SlideCount()})
	})
	coordinator.OnSlideFinished(func(index int) {
		program.Send(playback.SlideFinishedMsg{Index: index})
	})
	programPlayer.OnTrackChanged(func(name string) {
		program.Send(playback.TrackChangedMsg{TrackName: name})
	})
	programPlayer.OnError(func(err error) {
		program.Send(playback.PlaybackErrorMsg{Err: err})
	})
	voiceOver.OnFinished(func(track string) {
		program.Send(playback.VoiceOverFinishedMsg{TrackName: track})
	})

	_, err = program.Run()
	coordinator.Clear()
	voiceOver.Stop()
	return err
}

// buildEngines creates the two engine instances the players need, one
// for program audio and one for voice-overs.
func buildEngines(cfg playback.Config) (playback.Engine, playback.Engine, error) {
	if cfg.Engine == "mock" {
		return engine.NewMock(true), engine.NewMock(true), nil
	}
	programEngine, err := engine.NewBeep(cfg.SampleRate, cfg.BufferLength)
	if err != nil {
		return nil, nil, err
	}
	voiceEngine, err := engine.NewBeep(cfg.SampleRate, cfg.BufferLength)
	if err != nil {
		return nil, nil, err
	}
	return programEngine, voiceEngine, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

// setupLog routes logging to a file when ALPHAPRESENTER_LOGFILE is
// set, keeping the terminal free for the presentation.
func setupLog() (func() error, error) {
	path := os.Getenv("ALPHAPRESENTER_LOGFILE")
	if path == "" {
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return f.Close, nil
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&libraryDir, "library", "L", "", "library directory holding tracks, programs, paragraphs and media")
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", "", "playback engine (beep or mock)")
	rootCmd.Flags().BoolVar(&silent, "silent", false, "run without audio output")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "debug logging")
	rootCmd.Flags().BoolVar(&validateOnly, "validate", false, "validate the playlist and exit")

	_ = viper.BindPFlag("playback.library_dir", rootCmd.Flags().Lookup("library"))
	_ = viper.BindPFlag("playback.engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("playback.debug", rootCmd.Flags().Lookup("debug"))

	viper.SetDefault("playback.engine", "beep")
	viper.SetDefault("playback.sample_rate", 44100)

	rootCmd.AddCommand(configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "alphapresenter")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "alphapresenter")}, dirs...)
	}
	if c := os.Getenv("ALPHAPRESENTER_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("alphapresenter")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("alphapresenter")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "alphapresenter.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
