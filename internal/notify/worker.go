package notify

import (
	"encoding/json"

	"github.com/maplecart/storefront/internal/platform/sms"
	"github.com/maplecart/storefront/pkg/events"
	"github.com/maplecart/storefront/pkg/logger"
)

// Worker consumes order events off the bus and sends SMS updates to buyers
// with a verified mobile number. Deliveries are best-effort: a failed send is
// logged and the event is dropped.
type Worker struct {
	bus events.Subscriber
	sms sms.Sender
}

func NewWorker(bus events.Subscriber, sms sms.Sender) *Worker {
	return &Worker{bus: bus, sms: sms}
}

const queueGroup = "notify"

func (w *Worker) Start() error {
	if err := w.bus.QueueSubscribe(events.OrderPaid, queueGroup, w.handleOrderPaid); err != nil {
		return err
	}
	return w.bus.QueueSubscribe(events.OrderStatusChanged, queueGroup, w.handleStatusChanged)
}

func (w *Worker) handleOrderPaid(msg *events.Message) {
	var event events.OrderPaidEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("failed to decode order.paid event", "error", err)
		return
	}
	if event.Mobile == "" {
		return
	}

	if err := w.sms.SendOrderStatus(event.Mobile, event.OrderNumber, "paid"); err != nil {
		logger.Error("failed to send order paid SMS",
			"error", err,
			"order_id", event.OrderID,
		)
	}
}

func (w *Worker) handleStatusChanged(msg *events.Message) {
	var event events.OrderStatusChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("failed to decode order.status_changed event", "error", err)
		return
	}
	if event.Mobile == "" {
		return
	}

	if err := w.sms.SendOrderStatus(event.Mobile, event.OrderNumber, event.Status); err != nil {
		logger.Error("failed to send order status SMS",
			"error", err,
			"order_id", event.OrderID,
			"status", event.Status,
		)
	}
}
