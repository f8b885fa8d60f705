package booth

// State is a session state.
type State int

const (
	StateInit State = iota
	StateStart
	StateCountdown
	StateReviewPhoto
	StatePrintPhoto
	StateSentToPrint
	StateExit
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateStart:
		return "Start"
	case StateCountdown:
		return "Countdown"
	case StateReviewPhoto:
		return "ReviewPhoto"
	case StatePrintPhoto:
		return "PrintPhoto"
	case StateSentToPrint:
		return "SentToPrint"
	case StateExit:
		return "Exit"
	default:
		return "Unknown"
	}
}

// Trigger is what drives the session from one state to another.
type Trigger int

const (
	TriggerBegin Trigger = iota
	TriggerKeyDown
	TriggerCountdownTick
	TriggerPrintNotifyExpired
	TriggerPrintFinished
)

func (t Trigger) String() string {
	switch t {
	case TriggerBegin:
		return "Begin"
	case TriggerKeyDown:
		return "KeyDown"
	case TriggerCountdownTick:
		return "CountdownTick"
	case TriggerPrintNotifyExpired:
		return "PrintNotifyExpired"
	case TriggerPrintFinished:
		return "PrintFinished"
	default:
		return "Unknown"
	}
}
