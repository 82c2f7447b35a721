package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolutize(flagPath)
	}

	// Priority 2: DIKTA_LOG_PATH environment variable
	if envPath := os.Getenv("DIKTA_LOG_PATH"); envPath != "" {
		return absolutize(envPath)
	}

	// Priority 3: OS-specific default
	return defaultDir()
}

func absolutize(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}

func defaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dikta"), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Command records a recording command handed to the session controller.
func Command(cmd, channel string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("cmd", cmd).
		Str("channel", channel).
		Msg("command")
}

// CommandFailed records a controller call that failed. The gesture is not
// retried; the controller's own state stays the source of truth.
func CommandFailed(cmd, channel string, err error) {
	if !logReady {
		return
	}
	diagLog.Error().
		Str("cmd", cmd).
		Str("channel", channel).
		Err(err).
		Msg("command_failed")
}

// Suppressed records an input event dropped by policy (busy state,
// cooldown, start already claimed). Not an error.
func Suppressed(reason, channel string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("reason", reason).
		Str("channel", channel).
		Msg("suppressed")
}

// HandsFree records a brief press whose recording continues after release.
func HandsFree(channel string, held time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("channel", channel).
		Dur("held", held).
		Msg("hands_free")
}

// MonitorStart records the channels active for a monitoring session.
func MonitorStart(channels []string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Strs("channels", channels).
		Msg("monitor_start")
}

// Transcription records batch upload timings.
func Transcription(provider string, audioS, totalMs float64, rateLimit string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().
		Str("provider", provider).
		Float64("audio_s", audioS).
		Float64("total_ms", totalMs)
	if rateLimit != "" {
		ev = ev.Str("rate_limit", rateLimit)
	}
	ev.Msg("transcription")
}

// TranscriptionText appends the transcript itself to the separate
// transcribe log, tab-separated.
func TranscriptionText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}
