package main

import (
	"encoding/json"
	"log"

	"go.uber.org/zap"

	"github.com/example/amargodulce/internal/config"
	"github.com/example/amargodulce/internal/infra/logger"
	"github.com/example/amargodulce/internal/infra/mq"
	"github.com/example/amargodulce/internal/service"
)

const confirmationQueue = "order_confirmation_queue"

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init()

	mqConn := mq.Init(&cfg.RabbitMQ)

	ch, err := mqConn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(confirmationQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}

	// 手动确认模式（auto-ack=false）
	msgs, err := ch.Consume(confirmationQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	zap.L().Info("notify worker started, waiting for messages...")

	for d := range msgs {
		var m service.ConfirmationMessage
		if err := json.Unmarshal(d.Body, &m); err != nil {
			zap.L().Error("invalid message", zap.Error(err))
			// 消息格式错误，拒绝并丢弃
			_ = d.Nack(false, false)
			continue
		}

		// 确认通知的实际投递出口（邮件/短信服务商）。这里先落日志，
		// 接入真实渠道时替换此处即可；消息本身已具备重投能力。
		zap.L().Info("order confirmation sent",
			zap.Int64("order_id", m.OrderID),
			zap.String("external_ref", m.ExternalRef),
			zap.Int64("user_id", m.UserID),
			zap.Int64("total", m.Total),
			zap.String("payment_id", m.PaymentID))

		if err := d.Ack(false); err != nil {
			zap.L().Error("failed to ack message", zap.Error(err))
		}
	}
}
