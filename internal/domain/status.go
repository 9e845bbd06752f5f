package domain

type IndexStatus string

const (
	IndexNotStarted IndexStatus = "not_started"
	IndexStarting   IndexStatus = "starting"
	IndexInProgress IndexStatus = "in_progress"
	IndexCompleted  IndexStatus = "completed"
)
