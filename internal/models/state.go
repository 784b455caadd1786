package models

// DatasetState состояние цикла синхронизации датасета
type DatasetState string

// Dataset states
const (
	StateStopped      DatasetState = "stopped"
	StateInitializing DatasetState = "initializing"
	StateIdle         DatasetState = "idle"
	StateSyncing      DatasetState = "syncing"
	StateCrashed      DatasetState = "crashed"
)

var stateTransitions = map[DatasetState][]DatasetState{
	StateStopped:      {StateInitializing},
	StateInitializing: {StateIdle, StateCrashed, StateStopped},
	StateIdle:         {StateSyncing, StateStopped},
	StateSyncing:      {StateIdle, StateCrashed, StateStopped},
	StateCrashed:      {StateSyncing, StateStopped},
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s DatasetState) CanTransition(next DatasetState) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active reports whether cycles are scheduled in this state.
func (s DatasetState) Active() bool {
	return s == StateInitializing || s == StateIdle || s == StateSyncing
}
