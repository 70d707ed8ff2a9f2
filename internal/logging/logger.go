package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации, по умолчанию INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Settings - параметры создания логгеров
type Settings struct {
	Dir          string   // каталог файлов логов, пусто - только консоль
	ConsoleLevel LogLevel // минимальный уровень для консоли
	FileLevel    LogLevel // минимальный уровень для файла
	MaxSizeMB    int
	MaxBackups   int
	MaxAgeDays   int
	Compress     bool
}

// DefaultSettings возвращает параметры по умолчанию
func DefaultSettings() Settings {
	return Settings{
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
		MaxSizeMB:    50,
		MaxBackups:   5,
		MaxAgeDays:   7,
	}
}

var (
	settingsMu sync.RWMutex
	settings   = DefaultSettings()
)

// Configure задает параметры для всех логгеров, созданных после вызова
func Configure(s Settings) {
	settingsMu.Lock()
	settings = s
	settingsMu.Unlock()
}

func currentSettings() Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// Logger - логгер компонента с раздельными уровнями для консоли и файла
type Logger struct {
	component       string
	consoleLogger   *zap.SugaredLogger
	fileLogger      *zap.SugaredLogger
	rotator         *lumberjack.Logger
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

var encoderCfg = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "level",
	NameKey:        "logger",
	MessageKey:     "msg",
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
}

func newConsoleLogger(component string, s Settings) *Logger {
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	return &Logger{
		component:       component,
		consoleLogger:   zap.New(consoleCore).Named(component).Sugar(),
		minConsoleLevel: s.ConsoleLevel,
		minFileLevel:    s.FileLevel,
	}
}

// NewLogger создает логгер компонента
func NewLogger(component string) (*Logger, error) {
	s := currentSettings()
	l := newConsoleLogger(component, s)
	if s.Dir == "" {
		return l, nil
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
	}

	l.rotator = &lumberjack.Logger{
		Filename:   filepath.Join(s.Dir, component+".log"),
		MaxSize:    s.MaxSizeMB,
		MaxBackups: s.MaxBackups,
		MaxAge:     s.MaxAgeDays,
		LocalTime:  true,
		Compress:   s.Compress,
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(l.rotator), zapcore.DebugLevel)
	l.fileLogger = zap.New(fileCore).Named(component).Sugar()

	return l, nil
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

// Close сбрасывает буферы и закрывает файл
func (l *Logger) Close() error {
	if l.consoleLogger != nil {
		_ = l.consoleLogger.Sync()
	}
	if l.fileLogger != nil {
		_ = l.fileLogger.Sync()
	}
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		write(l.consoleLogger, level, format, args...)
	}
	if l.fileLogger != nil && level >= l.minFileLevel {
		write(l.fileLogger, level, format, args...)
	}
}

func write(s *zap.SugaredLogger, level LogLevel, format string, args ...interface{}) {
	switch level {
	case TRACE:
		s.Debugf("[TRACE] "+format, args...)
	case DEBUG:
		s.Debugf(format, args...)
	case INFO:
		s.Infof(format, args...)
	case WARN:
		s.Warnf(format, args...)
	default:
		s.Errorf(format, args...)
	}
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Глобальный логгер процесса
var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// InitDefaultLogger инициализирует глобальный логгер процесса
func InitDefaultLogger(component string) error {
	l, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger != nil {
		_ = defaultLogger.Close()
		defaultLogger = nil
	}
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует через глобальный логгер
func Trace(format string, args ...interface{}) { current().log(TRACE, format, args...) }

// Debug логирует через глобальный логгер
func Debug(format string, args ...interface{}) { current().log(DEBUG, format, args...) }

// Info логирует через глобальный логгер
func Info(format string, args ...interface{}) { current().log(INFO, format, args...) }

// Warn логирует через глобальный логгер
func Warn(format string, args ...interface{}) { current().log(WARN, format, args...) }

// Error логирует через глобальный логгер
func Error(format string, args ...interface{}) { current().log(ERROR, format, args...) }
