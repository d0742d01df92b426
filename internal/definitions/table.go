package definitions

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/world/block"
	"github.com/annel0/tileworld/internal/world/entity"
	"github.com/annel0/tileworld/internal/world/item"
)

// Table - дополнительные определения, которые сервер может объявить сверх встроенных
type Table struct {
	Blocks   []block.Props        `yaml:"blocks" toml:"blocks"`
	Entities []*entity.Definition `yaml:"entities" toml:"entities"`
	Items    []*item.Definition   `yaml:"items" toml:"items"`
}

// ParseTable разбирает таблицу в формате YAML или TOML (format: "yaml" или "toml")
func ParseTable(data []byte, format string) (*Table, error) {
	var t Table
	switch strings.ToLower(format) {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("ошибка разбора TOML таблицы: %w", err)
		}
	case "yaml", "yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return nil, fmt.Errorf("ошибка разбора YAML таблицы: %w", err)
		}
	default:
		return nil, fmt.Errorf("неизвестный формат таблицы %q", format)
	}
	return &t, nil
}

// LoadTable читает таблицу из файла; формат определяется по расширению
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы определений: %w", err)
	}
	return ParseTable(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Apply регистрирует определения таблицы поверх встроенных и собирает сводку
func (t *Table) Apply(blocks *block.Registry, entities *entity.Registry, items *item.Registry) (*Registry, error) {
	for _, s := range t.Blocks {
		if s.ID < block.FirstCustomID {
			return nil, fmt.Errorf("блок %q: ID %d занят встроенными блоками", s.Name, s.ID)
		}
		if err := blocks.Register(block.NewCustom(s)); err != nil {
			return nil, err
		}
	}
	for _, def := range t.Entities {
		if def.ID < entity.FirstCustomType {
			return nil, fmt.Errorf("сущность %q: ID %d занят встроенными типами", def.Name, def.ID)
		}
		if err := entities.Register(def); err != nil {
			return nil, err
		}
	}
	for _, def := range t.Items {
		if _, ok := blocks.Get(def.Places); !ok {
			return nil, fmt.Errorf("предмет %q ставит неизвестный блок %d", def.Name, def.Places)
		}
		if err := items.Register(def); err != nil {
			return nil, err
		}
	}

	logging.Debug("📚 Таблица определений: +%d блоков, +%d сущностей, +%d предметов",
		len(t.Blocks), len(t.Entities), len(t.Items))
	return New(blocks, entities, items)
}

// Load строит сводку: встроенные определения и, если path не пуст, таблица из файла
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	t, err := LoadTable(path)
	if err != nil {
		return nil, err
	}
	blocks, entities, items := Builtin()
	reg, err := t.Apply(blocks, entities, items)
	if err != nil {
		return nil, fmt.Errorf("ошибка применения таблицы %s: %w", path, err)
	}
	logging.Info("📚 Загружена таблица определений %s: %d блоков, %d сущностей, %d предметов",
		path, blocks.Len(), entities.Len(), items.Len())
	return reg, nil
}
