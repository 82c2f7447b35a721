// Package config loads the channel bindings and timing constants from
// ~/.config/dikta/config.toml. Configuration is read once at
// monitoring-setup time; changing it means tearing the monitor down and
// rebuilding it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"dikta/input"
)

// Defaults for the timing constants.
const (
	DefaultBriefPress = 1700 * time.Millisecond
	DefaultDoubleTap  = time.Second
	DefaultCooldown   = 500 * time.Millisecond
	DefaultDebounce   = 75 * time.Millisecond
)

type Config struct {
	// Channel bindings. Primary/Secondary are modifier key names,
	// Shortcut is a combination like "ctrl+shift+space". Empty disables
	// the channel.
	Primary     string
	Secondary   string
	Shortcut    string
	MiddleClick bool

	// Timing constants.
	BriefPress       time.Duration
	DoubleTap        time.Duration
	Cooldown         time.Duration
	Debounce         time.Duration
	MiddleClickDelay time.Duration

	Language  string
	AutoPaste bool
}

// duration lets TOML values be written as "1.7s".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

type fileConfig struct {
	Channels struct {
		Primary     string `toml:"primary"`
		Secondary   string `toml:"secondary"`
		Shortcut    string `toml:"shortcut"`
		MiddleClick bool   `toml:"middle_click"`
	} `toml:"channels"`
	Timing struct {
		BriefPress       duration `toml:"brief_press"`
		DoubleTap        duration `toml:"double_tap"`
		Cooldown         duration `toml:"cooldown"`
		Debounce         duration `toml:"debounce"`
		MiddleClickDelay duration `toml:"middle_click_delay"`
	} `toml:"timing"`
	Transcription struct {
		Language string `toml:"language"`
	} `toml:"transcription"`
	Paste struct {
		Auto *bool `toml:"auto"`
	} `toml:"paste"`
}

// DefaultPath returns ~/.config/dikta/config.toml (or the platform
// equivalent).
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "dikta", "config.toml")
}

func defaults() *Config {
	return &Config{
		Primary:    "rightctrl",
		BriefPress: DefaultBriefPress,
		DoubleTap:  DefaultDoubleTap,
		Cooldown:   DefaultCooldown,
		Debounce:   DefaultDebounce,
		Language:   "en",
		AutoPaste:  true,
	}
}

// Load reads path (DefaultPath when empty). A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if fc.Channels.Primary != "" {
		cfg.Primary = fc.Channels.Primary
	}
	cfg.Secondary = fc.Channels.Secondary
	cfg.Shortcut = fc.Channels.Shortcut
	cfg.MiddleClick = fc.Channels.MiddleClick

	if fc.Timing.BriefPress != 0 {
		cfg.BriefPress = time.Duration(fc.Timing.BriefPress)
	}
	if fc.Timing.DoubleTap != 0 {
		cfg.DoubleTap = time.Duration(fc.Timing.DoubleTap)
	}
	if fc.Timing.Cooldown != 0 {
		cfg.Cooldown = time.Duration(fc.Timing.Cooldown)
	}
	if fc.Timing.Debounce != 0 {
		cfg.Debounce = time.Duration(fc.Timing.Debounce)
	}
	cfg.MiddleClickDelay = time.Duration(fc.Timing.MiddleClickDelay)

	if fc.Transcription.Language != "" {
		cfg.Language = fc.Transcription.Language
	}
	if fc.Paste.Auto != nil {
		cfg.AutoPaste = *fc.Paste.Auto
	}

	return cfg, nil
}

// Normalize validates the bindings in place and returns warnings for
// anything it had to fix up. Both hotkeys bound to the same physical key
// collapse into one channel rather than fighting over it.
func (c *Config) Normalize() ([]string, error) {
	var warnings []string

	if c.Primary == "" && c.Secondary != "" {
		c.Primary, c.Secondary = c.Secondary, ""
	}
	if c.Primary != "" {
		if _, ok := input.ModifierKey(c.Primary); !ok {
			return nil, fmt.Errorf("unknown primary hotkey %q", c.Primary)
		}
	}
	if c.Secondary != "" {
		if _, ok := input.ModifierKey(c.Secondary); !ok {
			return nil, fmt.Errorf("unknown secondary hotkey %q", c.Secondary)
		}
		if c.Secondary == c.Primary {
			warnings = append(warnings, "primary and secondary hotkeys are the same key; treating them as one channel")
			c.Secondary = ""
		}
	}
	if c.Shortcut != "" {
		if _, err := input.ParseShortcut(c.Shortcut); err != nil {
			return nil, fmt.Errorf("invalid shortcut: %w", err)
		}
	}
	if c.Primary == "" && c.Secondary == "" && c.Shortcut == "" && !c.MiddleClick {
		return nil, fmt.Errorf("no input channels configured")
	}
	return warnings, nil
}

// Sources builds the input sources for the configured channels.
func (c *Config) Sources() ([]input.Source, error) {
	var sources []input.Source
	if c.Primary != "" {
		src, err := input.NewModifierSource(input.ChannelPrimary, c.Primary)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if c.Secondary != "" {
		src, err := input.NewModifierSource(input.ChannelSecondary, c.Secondary)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if c.Shortcut != "" {
		src, err := input.NewShortcutSource(input.ChannelShortcut, c.Shortcut)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if c.MiddleClick {
		src, err := input.NewMouseSource(input.ChannelMouse)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// ChannelNames lists the active channels for logging.
func (c *Config) ChannelNames() []string {
	var names []string
	if c.Primary != "" {
		names = append(names, "primary:"+c.Primary)
	}
	if c.Secondary != "" {
		names = append(names, "secondary:"+c.Secondary)
	}
	if c.Shortcut != "" {
		names = append(names, "shortcut:"+c.Shortcut)
	}
	if c.MiddleClick {
		names = append(names, "mouse:middle")
	}
	return names
}
