package messaging

type ChangeTopic string

const (
	// TrackingTopic carries outbound analytics tuples.
	TrackingTopic ChangeTopic = "tracking"
)
