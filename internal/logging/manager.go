package logging

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
)

// LoggerManager держит по одному логгеру на компонент (world, game, api, eventbus)
// и общие для всех уровни
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
	console LogLevel
	file    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{
			loggers: make(map[string]*Logger),
			console: INFO,
			file:    TRACE,
		}
	})
	return globalManager
}

// Component возвращает логгер компонента, создавая его при первом обращении.
// Если файл лога создать не удалось, компонент пишет только в консоль.
func (lm *LoggerManager) Component(name string) *Logger {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if l, ok := lm.loggers[name]; ok {
		return l
	}

	l, err := NewLogger(name)
	if err != nil {
		current().Warn("Логгер %s без файла: %v", name, err)
		l = &Logger{
			component:     name,
			consoleLogger: log.New(os.Stdout, "", log.LstdFlags),
		}
	}
	l.SetLevels(lm.console, lm.file)
	lm.loggers[name] = l
	return l
}

// SetLevels меняет уровни созданных логгеров и тех, что будут созданы позже
func (lm *LoggerManager) SetLevels(console, file LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.console, lm.file = console, file
	for _, l := range lm.loggers {
		l.SetLevels(console, file)
	}
}

// Components возвращает имена созданных логгеров по алфавиту
func (lm *LoggerManager) Components() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	names := make([]string, 0, len(lm.loggers))
	for name := range lm.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for name, l := range lm.loggers {
		if err := l.Close(); err != nil {
			lastErr = fmt.Errorf("закрытие логгера %s: %w", name, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// GetComponentLogger возвращает логгер компонента через глобальный менеджер
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().Component(component)
}

// GetAPILogger возвращает логгер REST API
func GetAPILogger() *Logger {
	return GetComponentLogger("api")
}
