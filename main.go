package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/robmorgan/showctl/config"
	"github.com/robmorgan/showctl/cuelist"
	"github.com/robmorgan/showctl/logger"
	"github.com/robmorgan/showctl/midi"
	"github.com/robmorgan/showctl/osctrigger"
	"github.com/robmorgan/showctl/playback"
	"github.com/robmorgan/showctl/process"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

var (
	configPath string
	logLevel   string
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "showctl",
		Short:        "Show control cue engine",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newValidateCommand())
	return rootCmd
}

func loadConfig() (config.ShowConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newRunCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the show and listen for OSC triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return Run(cmd.Context(), cfg, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log MIDI messages instead of sending them")
	return cmd
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config and print the cue list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			master, err := newMaster(clock.RealClock{}, cfg, &midi.Recorder{})
			if err != nil {
				return err
			}
			printCueList(cmd.OutOrStdout(), master)
			return nil
		},
	}
}

func newMaster(clk clock.Clock, cfg config.ShowConfig, sender midi.Sender) (*cuelist.Master, error) {
	player, err := playback.NewPlayer(cfg.Media)
	if err != nil {
		return nil, err
	}

	master := cuelist.InitializeMaster(clk, cfg, cuelist.Services{
		Playback:  player,
		MIDI:      sender,
		Processes: process.NewExecService(cfg.Shell),
	})
	if err := buildShow(master.GetDefaultCueList(), cfg); err != nil {
		return nil, err
	}
	return master, nil
}

// Run starts the show
func Run(ctx context.Context, cfg config.ShowConfig, dryRun bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// initialize the logger
	logger := logger.GetProjectLogger()

	wg := sync.WaitGroup{}

	var sender midi.Sender = midi.NewOSCSender(cfg.OSC.MIDIHost, cfg.OSC.MIDIPort)
	if dryRun {
		sender = &midi.Recorder{}
	}

	// init cue master
	logger.Info("Initializing cue list master...")
	master, err := newMaster(clock.RealClock{}, cfg, sender)
	if err != nil {
		return err
	}

	// process cues forever
	logger.Info("Processing cues forever...")
	master.ProcessForever(ctx, &wg)

	listener := osctrigger.NewListener(cfg.OSC.ListenAddr, master)
	if err := listener.Listen(); err != nil {
		logger.Errorf("could not start OSC listener: %v", err)
	} else {
		wg.Add(1)
		go listener.Serve(ctx, &wg)
	}

	// handle CTRL+C interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Println("shutting down showctl")
	master.StopAll(false)
	cancel()
	wg.Wait()
	return nil
}
