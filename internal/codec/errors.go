package codec

import (
	"errors"
	"fmt"

	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/protocol"
)

// ErrInvariantViolation возвращается, когда данные пакета противоречат формату чанка
var ErrInvariantViolation = errors.New("chunk invariant violation")

func invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// Виды ошибок декодирования для меток метрик
const (
	KindUnexpectedEOF      = "unexpected_eof"
	KindUnknownDefinition  = "unknown_definition"
	KindInvariantViolation = "invariant_violation"
	KindOther              = "other"
)

// Kind классифицирует ошибку декодирования
func Kind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnexpectedEndOfData):
		return KindUnexpectedEOF
	case errors.Is(err, definitions.ErrUnknownID):
		return KindUnknownDefinition
	case errors.Is(err, ErrInvariantViolation):
		return KindInvariantViolation
	default:
		return KindOther
	}
}
