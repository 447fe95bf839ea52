package eventbus

import "context"

var globalBus EventBus

// Init устанавливает глобальную шину.
func Init(bus EventBus) { globalBus = bus }

// Global возвращает глобальную шину (nil, если не инициализирована).
func Global() EventBus { return globalBus }

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}
