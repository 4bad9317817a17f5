package entity

type AgentState string

const (
	StateIdle        AgentState = "idle"
	StateConfiguring AgentState = "configuring"
	StateReady       AgentState = "ready"
	StateRunning     AgentState = "running"
	StatePaused      AgentState = "paused"
	StateStopped     AgentState = "stopped"
	StateError       AgentState = "error"
)

func (s AgentState) String() string {
	return string(s)
}

// Event is a lifecycle command applied to the state machine.
type Event string

const (
	EventConfigure        Event = "configure"
	EventCalibrationReady Event = "calibrationReady"
	EventCancel           Event = "cancel"
	EventStart            Event = "start"
	EventReconfigure      Event = "reconfigure"
	EventPause            Event = "pause"
	EventResume           Event = "resume"
	EventStop             Event = "stop"
	EventFault            Event = "fault"
	EventReset            Event = "reset"
)

func (e Event) String() string {
	return string(e)
}
