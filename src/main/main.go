package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"light-translator/src/config"
	"light-translator/src/events"
	"light-translator/src/logutil"
	"light-translator/src/runtimeinit"
	"light-translator/src/surface"
	"light-translator/src/tray"
)

type mainOptions struct {
	hidden    bool
	autostart bool
	envFile   string
	addr      string
}

func main() {
	// The tray loop must own the main OS thread.
	runtime.LockOSThread()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"light-translator"}
	}

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "light-translator",
		Short:         "Resident translation helper: hotkey, tray and command server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.hidden, "hidden", false, "Start without showing the main window")
	cmd.Flags().BoolVar(&opts.autostart, "autostart", false, "Launched at login (implies --hidden)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to .env configuration file")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Command server listen address (overrides COMMAND_ADDR)")

	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"hidden", "autostart", "env-file", "addr"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "--" + arg[1:]
			}
		}
	}

	return normalized
}

func shouldStartHidden(opts mainOptions) bool {
	return opts.hidden || opts.autostart
}

// applyStartupVisibility hides the quick surface and, unless started hidden, brings the
// main surface forward.
func applyStartupVisibility(main, quick surface.Window, hidden bool) {
	if err := quick.Hide(); err != nil {
		log.Printf("startup: hide quick surface: %v", err)
	}
	if hidden {
		log.Printf("startup: starting hidden")
		return
	}
	if err := main.Show(); err != nil {
		log.Printf("startup: show main surface: %v", err)
	}
	_ = main.Focus()
}

func setupLogging(enableFileLogging bool) {
	logutil.Setup(enableFileLogging)
}

func runResident(opts mainOptions) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loadOptions := config.LoadOptions{EnvFileOverride: opts.envFile, AddrOverride: opts.addr}
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOptions,
		SetupLogging: setupLogging,
		OnQuit:       cancel,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	log.Printf("LightTranslator starting, hotkey %s, commands on %s", rt.Settings.Shortcut(), rt.Config.CommandAddr)

	applyStartupVisibility(rt.Main, rt.Quick, shouldStartHidden(opts))

	// A shortcut that cannot be bound leaves the app running without one.
	if err := rt.Settings.RegisterCurrent(); err != nil {
		log.Printf("startup: global shortcut unavailable: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := rt.Server.Run(ctx); err != nil {
			serverErr <- fmt.Errorf("command server: %w", err)
			cancel()
		}
	}()

	go func() {
		if err := rt.Loop.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("event loop stopped: %v", err)
		}
	}()

	if rt.Config.EnvPath != "" {
		err := config.Watch(ctx, rt.Config.EnvPath, loadOptions, func(cfg *config.Config) {
			rt.Loop.Post(events.ConfigChanged{Config: cfg})
		})
		if err != nil {
			log.Printf("config: not watching %s: %v", rt.Config.EnvPath, err)
		}
	}

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		<-ctx.Done()
		tray.Quit()
	}()

	tray.Run(func(action string) {
		rt.Loop.Post(events.TrayMenuClicked{Action: action})
	}, func() {
		log.Printf("tray ready")
	}, cancel)

	cancel()
	select {
	case err := <-serverErr:
		return err
	default:
		return nil
	}
}
