package service

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

const confirmationQueue = "order_confirmation_queue"

// ConfirmationMessage 订单确认通知的消息体，由 notify-worker 消费后发给买家
type ConfirmationMessage struct {
	OrderID     int64  `json:"order_id"`
	ExternalRef string `json:"external_ref"`
	UserID      int64  `json:"user_id"`
	Total       int64  `json:"total"`
	PaymentID   string `json:"payment_id"`
}

// Notifier 确认通知发送方。对账器只管投递，失败不往外传。
type Notifier interface {
	NotifyConfirmed(ctx context.Context, msg *ConfirmationMessage) error
}

// MQNotifier 把确认消息写进 RabbitMQ
type MQNotifier struct {
	conn *amqp.Connection
}

// NewMQNotifier 创建 MQ 通知器
func NewMQNotifier(conn *amqp.Connection) *MQNotifier {
	return &MQNotifier{conn: conn}
}

// NotifyConfirmed 投递订单确认消息
func (n *MQNotifier) NotifyConfirmed(ctx context.Context, msg *ConfirmationMessage) error {
	ch, err := n.conn.Channel()
	if err != nil {
		GetMonitor().RecordMQError()
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(confirmationQueue, true, false, false, false, nil); err != nil {
		GetMonitor().RecordMQError()
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		"",
		confirmationQueue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		GetMonitor().RecordMQError()
	}
	return err
}
