package entity

import "time"

// NameCount is one aggregation bucket, e.g. a username with its message count.
type NameCount struct {
	Name  string `json:"name" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// RecentForward is the trimmed ledger view shown on the dashboard. Internal
// ids and the tenant id stay out of the response.
type RecentForward struct {
	Username      string         `json:"username" bson:"username"`
	GroupName     string         `json:"group_name" bson:"group_name"`
	DestinationId string         `json:"destination_id" bson:"destination_id"`
	ForwardedAt   time.Time      `json:"forwarded_at" bson:"forwarded_at"`
	Outcome       ForwardOutcome `json:"outcome" bson:"outcome"`
}

// Stats is the on-demand analytics rollup for one tenant.
type Stats struct {
	TotalGroups         int64           `json:"total_groups"`
	TotalWatchlistUsers int64           `json:"total_watchlist_users"`
	TotalDestinations   int64           `json:"total_destinations"`
	TotalMessages       int64           `json:"total_messages"`
	MessagesToday       int64           `json:"messages_today"`
	TotalForwarded      int64           `json:"total_forwarded"`
	ForwardedToday      int64           `json:"forwarded_today"`
	ForwardingSuccess   float64         `json:"forwarding_success_rate"`
	TopUsers            []NameCount     `json:"top_users"`
	MessageTypes        []NameCount     `json:"message_types"`
	TopDestinations     []NameCount     `json:"top_destinations"`
	RecentForwards      []RecentForward `json:"recent_forwards"`
	LastUpdated         time.Time       `json:"last_updated"`
}
