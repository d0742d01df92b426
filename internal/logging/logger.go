package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
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

// ParseLevel разбирает уровень из конфигурации ("debug", "INFO", ...)
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("неизвестный уровень логирования %q", s)
}

// Options задаёт параметры инициализации логирования
type Options struct {
	// Dir - директория для файлов логов; пустая строка отключает запись в файл
	Dir          string
	ConsoleLevel LogLevel
	FileLevel    LogLevel
	// Console - куда писать консольный вывод (по умолчанию os.Stdout)
	Console io.Writer
}

// Logger представляет логгер компонента
type Logger struct {
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	mu              sync.RWMutex
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

var (
	optsMu      sync.RWMutex
	currentOpts = Options{ConsoleLevel: INFO, FileLevel: DEBUG}

	// Глобальный экземпляр логгера
	defaultLogger = &Logger{
		component:       "main",
		consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    DEBUG,
	}
)

// Init инициализирует систему логирования и пересоздаёт логгер по умолчанию
func Init(opts Options) error {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}

	optsMu.Lock()
	currentOpts = opts
	optsMu.Unlock()

	logger, err := NewLogger("main")
	if err != nil {
		return err
	}

	old := defaultLogger
	defaultLogger = logger
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Close закрывает логгер по умолчанию и все логгеры компонентов
func Close() error {
	err := GetLoggerManager().CloseAll()
	if defaultLogger != nil {
		if cerr := defaultLogger.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NewLogger создаёт логгер компонента с текущими настройками
func NewLogger(component string) (*Logger, error) {
	optsMu.RLock()
	opts := currentOpts
	optsMu.RUnlock()

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		component:       component,
		consoleLogger:   log.New(console, "", log.LstdFlags),
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    opts.FileLevel,
	}

	if opts.Dir == "" {
		return l, nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", opts.Dir, err)
	}

	// Файл для логов с временной меткой
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	l.file = file
	l.fileLogger = log.New(file, "", log.LstdFlags)
	return l, nil
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// Component возвращает имя компонента
func (l *Logger) Component() string { return l.component }

// SetLevels меняет минимальные уровни консоли и файла
func (l *Logger) SetLevels(console, file LogLevel) {
	l.mu.Lock()
	l.minConsoleLevel = console
	l.minFileLevel = file
	l.mu.Unlock()
}

func (l *Logger) fileLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minFileLevel
}

// Enabled сообщает, попадёт ли сообщение уровня level хоть в один вывод
func (l *Logger) Enabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.minConsoleLevel || (l.fileLogger != nil && level >= l.minFileLevel)
}

func (l *Logger) Trace(format string, args ...interface{}) { l.logMessage(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logMessage(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{}) { l.logMessage(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{}) { l.logMessage(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.logMessage(ERROR, format, args...) }

// logMessage внутренняя функция для логирования
func (l *Logger) logMessage(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	toConsole := level >= l.minConsoleLevel
	toFile := l.fileLogger != nil && level >= l.minFileLevel
	if !toConsole && !toFile {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if toFile {
		l.fileLogger.Println(message)
	}
	if toConsole {
		l.consoleLogger.Println(message)
	}
}

// Trace логирует сообщение уровня TRACE в логгер по умолчанию
func Trace(format string, args ...interface{}) { defaultLogger.logMessage(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG в логгер по умолчанию
func Debug(format string, args ...interface{}) { defaultLogger.logMessage(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO в логгер по умолчанию
func Info(format string, args ...interface{}) { defaultLogger.logMessage(INFO, format, args...) }

// Warn логирует сообщение уровня WARN в логгер по умолчанию
func Warn(format string, args ...interface{}) { defaultLogger.logMessage(WARN, format, args...) }

// Error логирует сообщение уровня ERROR в логгер по умолчанию
func Error(format string, args ...interface{}) { defaultLogger.logMessage(ERROR, format, args...) }

// HexDump создает hex дамп данных
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "No data"
	}

	// Ограничиваем размер дампа до 256 байт
	size := len(data)
	if size > 256 {
		size = 256
	}

	return hex.Dump(data[:size])
}

// LogProtocolError логирует ошибку разбора пакета вместе с дампом данных
func (l *Logger) LogProtocolError(source string, err error, data []byte) {
	l.Error("Protocol error from %s: %v", source, err)
	if len(data) > 0 && l.Enabled(DEBUG) {
		l.Debug("Raw data (%d bytes):\n%s", len(data), HexDump(data))
	}
}

// LogEntityMovement логирует переход сущности между чанками
func (l *Logger) LogEntityMovement(entityID int64, fromX, fromY, toX, toY float64) {
	l.Trace("Entity %d movement: (%.2f,%.2f) -> (%.2f,%.2f)", entityID, fromX, fromY, toX, toY)
}

// LogChunkData логирует приём данных чанка
func (l *Logger) LogChunkData(source string, chunkX, chunkY int32, paletteLen, entityCount int) {
	l.Debug("Chunk data from %s: chunk(%d,%d) palette=%d entities=%d",
		source, chunkX, chunkY, paletteLen, entityCount)
}
