package scheduler

// State is the scheduler's position in the cycle state machine.
type State string

// Scheduler states. A cycle moves FETCHING -> EXTRACTING -> EVALUATING ->
// PERSISTING -> SLEEPING; a failed fetch jumps straight to SLEEPING.
const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING"
	StateExtracting State = "EXTRACTING"
	StateEvaluating State = "EVALUATING"
	StatePersisting State = "PERSISTING"
	StateSleeping   State = "SLEEPING"
)

func (s State) String() string { return string(s) }
