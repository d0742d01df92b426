package codec

import (
	"fmt"
	"math"
	"strings"
)

// IDMode определяет, как 32 младших и 16 старших бит ID сущности
// собираются в одно число
type IDMode int

const (
	// IDModeLegacy: low + high*MaxInt32, произведение считается в int32 с переполнением.
	// Совпадает с тем, что получают существующие клиенты.
	IDModeLegacy IDMode = iota
	// IDModePacked: high<<32 | low, без потерь для всех 48 бит
	IDModePacked
)

// String возвращает имя режима для конфигурации
func (m IDMode) String() string {
	switch m {
	case IDModeLegacy:
		return "legacy"
	case IDModePacked:
		return "packed"
	default:
		return fmt.Sprintf("IDMode(%d)", int(m))
	}
}

// ParseIDMode разбирает режим из конфигурации; пустая строка - legacy
func ParseIDMode(s string) (IDMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "legacy":
		return IDModeLegacy, nil
	case "packed":
		return IDModePacked, nil
	}
	return IDModeLegacy, fmt.Errorf("неизвестный режим ID сущностей %q", s)
}

// Combine собирает ID из проводных частей
func (m IDMode) Combine(low uint32, high uint16) int64 {
	if m == IDModePacked {
		return int64(high)<<32 | int64(low)
	}
	product := int32(high) * math.MaxInt32
	return int64(low) + int64(product)
}

// Split раскладывает ID на проводные части; Combine(Split(id)) == id
func (m IDMode) Split(id int64) (low uint32, high uint16, err error) {
	if m == IDModePacked {
		if id < 0 || id >= 1<<48 {
			return 0, 0, invariantf("ID сущности %d не помещается в 48 бит", id)
		}
		return uint32(id), uint16(id >> 32), nil
	}
	if id < 0 || id > math.MaxUint32 {
		return 0, 0, invariantf("ID сущности %d не кодируется в режиме legacy", id)
	}
	return uint32(id), 0, nil
}
