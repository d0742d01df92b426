package logging

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// LoggerManager хранит логгеры компонентов клиента (network, codec, world, ...)
// и переопределения их уровней из конфигурации
type LoggerManager struct {
	mu        sync.RWMutex
	loggers   map[string]*Logger
	overrides map[string]LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers:   make(map[string]*Logger),
			overrides: make(map[string]LogLevel),
		}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Другая горутина могла успеть создать логгер
	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	if level, ok := lm.overrides[component]; ok {
		logger.SetLevels(level, logger.fileLevel())
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный запасной, если файл открыть не удалось
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	optsMu.RLock()
	opts := currentOpts
	optsMu.RUnlock()
	fallback := &Logger{
		component:       component,
		consoleLogger:   log.New(os.Stderr, "", log.LstdFlags),
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    ERROR,
	}
	fallback.Warn("⚠️ Запись в файл отключена: %v", err)
	return fallback
}

// ApplyLevels задаёт консольные уровни компонентов по именам из конфигурации.
// Уровни применяются к уже созданным логгерам и к тем, что появятся позже.
func (lm *LoggerManager) ApplyLevels(levels map[string]string) error {
	parsed := make(map[string]LogLevel, len(levels))
	for component, name := range levels {
		level, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("компонент %s: %w", component, err)
		}
		parsed[strings.ToLower(component)] = level
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	for component, level := range parsed {
		lm.overrides[component] = level
		if logger, ok := lm.loggers[component]; ok {
			logger.SetLevels(level, logger.fileLevel())
		}
	}
	return nil
}

// CloseAll закрывает файлы всех логгеров и забывает их.
// Переопределения уровней сохраняются.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер компонента %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// ListComponents возвращает отсортированный список компонентов с логгерами
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// SetLogLevel меняет оба уровня уже созданного логгера компонента
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.RLock()
	logger, ok := lm.loggers[component]
	lm.mu.RUnlock()

	if !ok {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}
	logger.SetLevels(consoleLevel, fileLevel)
	return nil
}

// GetComponentLogger возвращает логгер компонента из глобального менеджера
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetNetworkLogger() *Logger {
	return GetComponentLogger("network")
}

func GetCodecLogger() *Logger {
	return GetComponentLogger("codec")
}

func GetWorldLogger() *Logger {
	return GetComponentLogger("world")
}
