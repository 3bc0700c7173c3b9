package entity

import "time"

// BotCommand is an audit row for every command the bot receives.
// TenantId is empty when the sender is not a known dashboard user.
type BotCommand struct {
	Id             string    `json:"id" bson:"id"`
	TenantId       string    `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	TelegramUserId int64     `json:"telegram_user_id" bson:"telegram_user_id"`
	ChatId         string    `json:"chat_id" bson:"chat_id"`
	Username       string    `json:"username,omitempty" bson:"username,omitempty"`
	Command        string    `json:"command" bson:"command"`
	Args           string    `json:"args,omitempty" bson:"args,omitempty"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
}
