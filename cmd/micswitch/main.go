package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stalexteam/micswitch/pkg/micswitch"
)

// Injected at build time via ldflags
var (
	gitCommit  string
	versionTag string
	buildType  string
)

func main() {
	var (
		verbose    bool
		configFile string
	)

	rootCmd := &cobra.Command{
		Use:   "micswitch",
		Short: "Switch and mute the default macOS audio devices from the menu bar",
		// Silence Cobra's default error/usage printing; we handle it ourselves
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(verbose, configFile)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show verbose logs (useful for debugging)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file to use instead of the default search path")

	if versionTag != "" {
		rootCmd.Version = versionTag
	}

	newAudio := func() (*micswitch.AudioHelper, error) {
		return newAudioHelper(verbose)
	}

	addCommands(rootCmd, newAudio)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp(verbose bool, configFile string) error {
	logger, err := micswitch.NewLogger(buildType)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	named := logger.Named("main")
	named.Debug("Created logger")

	named.Infow("Version info",
		"gitCommit", gitCommit,
		"versionTag", versionTag,
		"buildType", buildType)

	if verbose {
		named.Debug("Verbose flag provided, all log messages will be shown")
	}

	m, err := micswitch.NewMicSwitch(logger, verbose, configFile)
	if err != nil {
		named.Fatalw("Failed to create micswitch object", "error", err)
	}

	// if injected by build process, set version info to show up in the tray
	if buildType != "" && (versionTag != "" || gitCommit != "") {
		identifier := gitCommit
		if versionTag != "" {
			identifier = versionTag
		}

		m.SetVersion(fmt.Sprintf("Version %s-%s", buildType, identifier))
	}

	if err = m.Initialize(); err != nil {
		named.Fatalw("Failed to initialize micswitch", "error", err)
	}

	return nil
}

// newAudioHelper builds the query/mutation boundary for one-shot commands, which only log warnings
func newAudioHelper(verbose bool) (*micswitch.AudioHelper, error) {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	backend, err := micswitch.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("create audio backend: %w", err)
	}

	return micswitch.NewAudioHelper(logger.Sugar(), backend), nil
}
