/*
Package log is the process-wide structured logger of wolfd, built on zerolog
(https://github.com/rs/zerolog).

The logger reads an optional toml file. Every field is optional.

	# default level for every module: debug/info/warn/error/fatal/panic
	level = "info"

	# console, console_no_color or json
	formatter = "json"

	# print source file and line
	caller = false

	# stdout, stderr or a file path
	out = "stderr"

	# per-module overrides (level and out only)
	[payment]
	level = "debug"

	[httpapi]
	out = "/var/log/wolfd-http.log"

The file is looked up as ./wolflog.toml, or at the path held by the
WOLFD_LOGCONFIG environment variable.
*/
package log

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	colorable "github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	confFilePathKey     = "LOGCONFIG"
	confEnvPrefix       = "WOLFD"
	defaultConfFileName = "wolflog"
)

var (
	baseLogger  = zerolog.New(os.Stderr)
	baseLevel   = zerolog.InfoLevel
	logInitLock sync.Mutex
	isLogInit   = false
	viperConf   = viper.New()
)

// Logger is a module-tagged zerolog logger.
type Logger struct {
	*zerolog.Logger
	name  string
	level zerolog.Level
}

func loadConfigFile() *viper.Viper {
	viperConf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConf.SetEnvPrefix(confEnvPrefix)
	viperConf.AutomaticEnv()

	viperConf.SetConfigType("toml")
	viperConf.SetConfigName(defaultConfFileName)
	viperConf.AddConfigPath(".")

	if path := viperConf.GetString(confFilePathKey); path != "" {
		viperConf.SetConfigFile(path)
	}

	if err := viperConf.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			baseLogger.Error().Err(err).Msg("failed to read logger config file")
		}
	}
	return viperConf
}

func initLog() {
	var out io.Writer = os.Stderr
	if name := viperConf.GetString("out"); name != "" {
		if o, err := getOutput(name); err == nil {
			out = o
		} else {
			baseLogger.Warn().Err(err).Str("out", name).Msg("failed to open log output, using stderr")
		}
	}

	switch strings.ToLower(viperConf.GetString("formatter")) {
	case "", "json":
		baseLogger = baseLogger.Output(out)
	case "console":
		if f, ok := out.(*os.File); ok {
			out = colorable.NewColorable(f)
		}
		baseLogger = baseLogger.Output(zerolog.ConsoleWriter{Out: out, NoColor: false})
	case "console_no_color":
		baseLogger = baseLogger.Output(zerolog.ConsoleWriter{Out: out, NoColor: true})
	default:
		baseLogger.Warn().Str("formatter", viperConf.GetString("formatter")).Msg("unknown log formatter, using json")
		baseLogger = baseLogger.Output(out)
	}

	if viperConf.GetBool("caller") {
		baseLogger = baseLogger.With().Caller().Logger()
	}

	zLevel := zerolog.InfoLevel
	if level := viperConf.GetString("level"); level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			baseLogger.Warn().Err(err).Str("level", level).Msg("invalid log level, using info")
		} else {
			zLevel = parsed
		}
	}

	baseLogger = baseLogger.With().Timestamp().Logger().Level(zLevel)
	baseLevel = zLevel
}

func ensureInit() {
	if !isLogInit {
		loadConfigFile()
		initLog()
		isLogInit = true
	}
}

// NewLogger returns a logger whose entries carry module=moduleName. A toml
// section named after the module may override its level and output.
func NewLogger(moduleName string) *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()
	ensureInit()

	zLogger := baseLogger.With().Str("module", moduleName).Logger()
	zLevel := baseLevel

	if sub := viperConf.Sub(moduleName); sub != nil {
		if name := sub.GetString("out"); name != "" {
			if out, err := getOutput(name); err == nil {
				zLogger = zLogger.Output(out)
			} else {
				baseLogger.Warn().Err(err).Str("out", name).Str("module", moduleName).Msg("failed to open module log output")
			}
		}
		if level := sub.GetString("level"); level != "" {
			parsed, err := zerolog.ParseLevel(level)
			if err != nil {
				parsed = zerolog.InfoLevel
			}
			zLevel = parsed
			zLogger = zLogger.Level(zLevel)
		}
	}

	return &Logger{Logger: &zLogger, name: moduleName, level: zLevel}
}

// Default returns the untagged base logger.
func Default() *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()
	ensureInit()
	return &Logger{Logger: &baseLogger, level: baseLevel}
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	l := zerolog.Nop()
	return &Logger{Logger: &l, level: zerolog.Disabled}
}

// IsDebugEnabled reports whether debug entries are emitted.
func (logger *Logger) IsDebugEnabled() bool {
	return logger.level <= zerolog.DebugLevel
}

// Level returns the effective level name.
func (logger *Logger) Level() string {
	return logger.level.String()
}

// Name returns the module name, empty for the default logger.
func (logger *Logger) Name() string {
	return logger.name
}

var errEmptyName = errors.New("empty output name")

// getOutput resolves stdout, stderr or a file path opened for append.
func getOutput(outName string) (*os.File, error) {
	switch outName {
	case "":
		return nil, errEmptyName
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(outName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	}
}
