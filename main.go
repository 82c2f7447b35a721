package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dikta/audio"
	"dikta/beep"
	"dikta/config"
	"dikta/coordinator"
	"dikta/encoder"
	"dikta/input"
	"dikta/log"
	"dikta/paste"
	"dikta/session"
	"dikta/transcriber"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "", "Config file path (default: ~/.config/dikta/config.toml)")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	langFlag := flag.String("lang", "", "Language code for transcription (e.g., en, es, fr)")
	autoPasteFlag := flag.Bool("autopaste", true, "Auto-paste to focused window after transcription")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dikta %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the config file only when given explicitly.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lang":
			cfg.Language = *langFlag
		case "autopaste":
			cfg.AutoPaste = *autoPasteFlag
		}
	})

	warnings, err := cfg.Normalize()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	for _, w := range warnings {
		log.Warn(w)
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	tr, err := transcriber.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	tr.SetLanguage(cfg.Language)

	if cfg.AutoPaste {
		if err := paste.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	selectedDevice, err := audio.FindDevice(actx, *deviceFlag)
	if err != nil {
		log.Warnf("device enumeration failed: %v", err)
	}
	if *deviceFlag != "" && selectedDevice == nil {
		log.Warnf("device not found: %s", *deviceFlag)
		fmt.Fprintf(os.Stderr, "Warning: device %q not found, using system default\n", *deviceFlag)
	}

	capture, err := actx.NewCapture(selectedDevice, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	var sink session.EventSink
	if *tuiFlag {
		sink = tuiSink{}
	} else {
		sink = session.NopSink{}
	}

	ctrl := session.New(tr, capture, session.Config{
		Language:  cfg.Language,
		AutoPaste: cfg.AutoPaste,
	}, sink)

	coord := coordinator.New(ctrl, coordinator.Config{
		BriefPress: cfg.BriefPress,
		DoubleTap:  cfg.DoubleTap,
		Cooldown:   cfg.Cooldown,
	})
	defer coord.Close()

	sources, err := cfg.Sources()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mon := input.NewMonitor(coord.HandleTransition, cfg.Debounce, cfg.MiddleClickDelay)
	for _, src := range sources {
		mon.Add(src)
	}
	if err := mon.Start(); err != nil {
		log.Errorf("input monitor error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "On Linux, reading input devices needs membership in the input group.")
		os.Exit(1)
	}
	defer mon.Stop()
	log.MonitorStart(cfg.ChannelNames())

	go beep.Init()

	if *tuiFlag {
		modeLine := fmt.Sprintf("[%s (%s)]", tr.Name(), tr.GetLanguage())
		deviceLine := "mic: " + capture.DeviceName()
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(modeLine, deviceLine, helpLines(cfg), coord.Cancel)
		tuiMu.Unlock()

		if _, err := tuiProgram.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
		}
	} else {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
	}

	log.Close()
}

func helpLines(cfg *config.Config) []string {
	var lines []string
	if cfg.Primary != "" {
		lines = append(lines, "hold "+cfg.Primary+" to dictate, tap it for hands-free")
	}
	if cfg.Secondary != "" {
		lines = append(lines, "secondary: "+cfg.Secondary)
	}
	if cfg.Shortcut != "" {
		lines = append(lines, cfg.Shortcut+" toggles recording")
	}
	if cfg.MiddleClick {
		lines = append(lines, "middle-click toggles recording")
	}
	lines = append(lines, "tap again right after stopping to paste and send")
	return lines
}
