package dispatch

// ActivityType enumerates the observable protocol events.
type ActivityType string

const (
	ActivityReindeerArrived      ActivityType = "reindeerArrived"
	ActivityReindeerGroupFormed  ActivityType = "reindeerGroupFormed"
	ActivityReindeerHarnessed    ActivityType = "reindeerHarnessed"
	ActivityDeliveryStarted      ActivityType = "deliveryStarted"
	ActivityDeliveryFinished     ActivityType = "deliveryFinished"
	ActivityElfArrived           ActivityType = "elfArrived"
	ActivityElfGroupFormed       ActivityType = "elfGroupFormed"
	ActivityElfHelped            ActivityType = "elfHelped"
	ActivityConsultationStarted  ActivityType = "consultationStarted"
	ActivityConsultationFinished ActivityType = "consultationFinished"
)

// Activity is the payload published on the event bus for every observable
// protocol step. Emission is best-effort: the protocol never blocks on a
// slow or absent subscriber.
type Activity struct {
	Type ActivityType `json:"type"`

	// ActorID identifies the reindeer or elf for per-actor events
	ActorID int `json:"actorID,omitempty"`

	// Waiting is the arrival count toward the next group, for arrival events
	Waiting int `json:"waiting,omitempty"`

	// Count is the serviced group size, for finished events
	Count int `json:"count,omitempty"`
}
