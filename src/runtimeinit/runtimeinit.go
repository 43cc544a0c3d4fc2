package runtimeinit

import (
	"fmt"
	"log"
	"os"

	"light-translator/src/autostart"
	"light-translator/src/capture"
	"light-translator/src/clipboard"
	"light-translator/src/config"
	"light-translator/src/dispatch"
	"light-translator/src/display"
	"light-translator/src/events"
	"light-translator/src/eventloop"
	"light-translator/src/gateway"
	"light-translator/src/hotkey"
	"light-translator/src/ocr"
	"light-translator/src/router"
	"light-translator/src/server"
	"light-translator/src/settings"
	"light-translator/src/surface"
	"light-translator/src/worker"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)

	// Runner, Clipboard and Hotkeys replace the system implementations when set.
	Runner    gateway.Runner
	Clipboard clipboard.Bridge
	Hotkeys   settings.Registrar
	// OnQuit runs when the tray Quit item is picked.
	OnQuit func()
}

// Runtime is the wired resident.
type Runtime struct {
	Config       *config.Config
	Router       *router.Router
	Pipeline     *ocr.Pipeline
	Orchestrator *capture.Orchestrator
	Settings     *settings.Store
	Dispatcher   *dispatch.Dispatcher
	Server       *server.Server
	Loop         *eventloop.Loop
	Main         *surface.Remote
	Quick        *surface.Remote

	closers []func()
}

// Bootstrap loads configuration, sets up logging and wires every component.
// Nothing is registered or started yet.
func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	log.Printf("config: env=%q addr=%s hotkey=%q languages=%v", cfg.EnvPath, cfg.CommandAddr, cfg.Hotkey, cfg.OCRLanguages)

	rt := &Runtime{Config: cfg}

	clip := opts.Clipboard
	if clip == nil {
		if err := clipboard.Init(); err != nil {
			log.Printf("clipboard unavailable, using in-process clipboard: %v", err)
			clip = &clipboard.Memory{}
		} else {
			clip = clipboard.System{}
		}
	}

	runner := opts.Runner
	if runner == nil {
		runner = gateway.ExecRunner{}
	}

	pipelineOpts := []ocr.Option{ocr.WithLanguages(cfg.OCRLanguages)}
	if cfg.ScratchDir != "" {
		pipelineOpts = append(pipelineOpts, ocr.WithScratchDir(cfg.ScratchDir))
	}
	rt.Pipeline = ocr.NewSystem(runner, pipelineOpts...)

	rt.Router = router.NewRouter()
	rt.closers = append(rt.closers, rt.Router.Shutdown)
	rt.Main = surface.NewRemote(events.LabelMain, rt.Router)
	rt.Quick = surface.NewRemote(events.LabelQuick, rt.Router)
	bus := surface.NewBus(rt.Router)

	var bounds display.Bounds
	if cfg.ClampToDisplay {
		bounds = display.System{}
	}

	xdo := gateway.XdoTool{Runner: runner}
	rt.Orchestrator = capture.New(capture.Deps{
		Keyboard:  xdo,
		Clipboard: clip,
		Pointer:   xdo,
		Windows:   xdo,
		Quick:     rt.Quick,
		Emitter:   bus,
		Bounds:    bounds,
		Title:     cfg.QuickWindowTitle,
	})

	reg := opts.Hotkeys
	if reg == nil {
		mgr := hotkey.NewManager()
		rt.closers = append(rt.closers, mgr.Close)
		reg = mgr
	}

	var persist settings.Persister
	if cfg.SettingsDB != "" {
		db, err := settings.OpenSQLite(cfg.SettingsDB)
		if err != nil {
			log.Printf("settings: persistence disabled: %v", err)
		} else {
			persist = db
			rt.closers = append(rt.closers, func() { _ = db.Close() })
		}
	}

	// The loop is created after the store but the hotkey only fires once registered.
	var loop *eventloop.Loop
	rt.Settings = settings.New(reg, persist, func() { loop.HotkeyHandler()() })
	rt.Settings.UseDefault(cfg.Hotkey)
	if err := rt.Settings.Restore(); err != nil {
		log.Printf("settings: %v", err)
	}

	loop = eventloop.New(eventloop.Deps{
		Capture:   rt.Orchestrator,
		OCR:       rt.Pipeline,
		Main:      rt.Main,
		Emitter:   bus,
		Shortcuts: rt.Settings,
		Pool:      worker.New(1),
		Hotkey:    cfg.Hotkey,
		OnQuit:    opts.OnQuit,
	})
	rt.Loop = loop

	rt.Dispatcher = dispatch.New(rt.Settings)

	entry, err := autostart.ForExecutable()
	if err != nil {
		log.Printf("autostart: %v", err)
		entry = &autostart.Entry{Exec: os.Args[0]}
	}

	rt.Server = server.New(server.Config{ListenAddr: cfg.CommandAddr}, server.Deps{
		Dispatcher: rt.Dispatcher,
		OCR:        rt.Pipeline,
		Settings:   rt.Settings,
		Quick:      rt.Quick,
		QuickText:  rt.Orchestrator,
		Autostart:  entry,
		Events:     rt.Router,
	})

	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	rt.Orchestrator.Wait()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
