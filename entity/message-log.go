package entity

import "time"

// MessageType is the closed classification of an archived message.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessagePhoto    MessageType = "photo"
	MessageVideo    MessageType = "video"
	MessageDocument MessageType = "document"
	MessageAudio    MessageType = "audio"
	MessageVoice    MessageType = "voice"
	MessageSticker  MessageType = "sticker"
	MessageOther    MessageType = "other"
)

// IngestPath records which intake produced an archive row.
type IngestPath string

const (
	IngestSession IngestPath = "session"
	IngestWebhook IngestPath = "webhook"
)

// MessageLog is an append-only archive row. Unique on
// (tenant_id, group_id, message_id) so duplicate receives are benign.
type MessageLog struct {
	Id              string                 `json:"id" bson:"id"`
	TenantId        string                 `json:"tenant_id" bson:"tenant_id"`
	GroupId         string                 `json:"group_id" bson:"group_id"`
	GroupName       string                 `json:"group_name" bson:"group_name"`
	UserId          string                 `json:"user_id" bson:"user_id"`
	Username        string                 `json:"username" bson:"username"`
	UserFullName    string                 `json:"user_full_name,omitempty" bson:"user_full_name,omitempty"`
	MessageId       string                 `json:"message_id" bson:"message_id"`
	MessageText     string                 `json:"message_text,omitempty" bson:"message_text,omitempty"`
	MessageType     MessageType            `json:"message_type" bson:"message_type"`
	MediaInfo       map[string]interface{} `json:"media_info,omitempty" bson:"media_info,omitempty"`
	MatchedKeywords []string               `json:"matched_keywords" bson:"matched_keywords"`
	Timestamp       time.Time              `json:"timestamp" bson:"timestamp"`
	IngestedVia     IngestPath             `json:"ingested_via" bson:"ingested_via"`
}

// InboundMessage is a raw message handed to the filter pipeline by a session
// receiver or the bot webhook, before any watch matching.
type InboundMessage struct {
	TenantId    string
	AccountId   string
	GroupId     string
	UserId      string
	Username    string
	FullName    string
	MessageId   string
	Text        string
	MessageType MessageType
	MediaInfo   map[string]interface{}
	Timestamp   time.Time
	IngestedVia IngestPath
}
