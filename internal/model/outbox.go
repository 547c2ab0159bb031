package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// maxOutboxErrorLen matches the last_error column width.
const maxOutboxErrorLen = 512

// OutboxMessage is a queued job. It is written in the same DB transaction as
// the state change that produced it and relayed to Kafka afterwards.
type OutboxMessage struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string     `gorm:"type:varchar(64);not null" json:"messageKey"`
	Topic      string     `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string     `gorm:"type:text;not null" json:"payload"`
	Status     string     `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int        `gorm:"not null;default:0" json:"retryCount"`
	LastError  string     `gorm:"type:varchar(512)" json:"lastError"`
	SentAt     *time.Time `json:"sentAt"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// NewOutboxMessage encodes job as a pending message on topic. Messages for
// the same entity share key so Kafka keeps them on one partition.
func NewOutboxMessage(topic string, key int64, job any) (*OutboxMessage, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode %s job: %w", topic, err)
	}
	return &OutboxMessage{
		MessageKey: strconv.FormatInt(key, 10),
		Topic:      topic,
		Payload:    string(payload),
		Status:     OutboxStatusPending,
	}, nil
}

// TruncateOutboxError fits a publish error into last_error.
func TruncateOutboxError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxOutboxErrorLen {
		msg = msg[:maxOutboxErrorLen]
	}
	return msg
}

// ExpiredAuctionJob is the payload of the auction expiry queue.
type ExpiredAuctionJob struct {
	SellingConfigID int64 `json:"sellingConfigId"`
}

// TransactionFeeJob is the payload of the fee backfill queue.
type TransactionFeeJob struct {
	TransactionID int64 `json:"transactionId"`
}
