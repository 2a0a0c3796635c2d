package kafka

// Topic definitions for Kafka event streaming
const (
	// Alert events published by the trade pipeline
	TopicTradeAlerts = "trades.alerts"
)
