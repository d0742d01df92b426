package eventbus

import (
	"context"

	"github.com/annel0/tileworld/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента eventbus.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	logger := logging.GetComponentLogger("eventbus")
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		if !logger.Enabled(logging.DEBUG) {
			return
		}
		fields := ""
		if s, err := DecodePayload(ev); err == nil {
			fields = s.String()
		}
		logger.Debug("[EventBus] %s %s src=%s prio=%d size=%dB %s", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload), fields)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
