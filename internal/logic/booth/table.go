package booth

import "github.com/cjeanneret/photobooth/internal/event"

// input is one trigger occurrence; key is only set for TriggerKeyDown.
type input struct {
	trigger Trigger
	key     event.Key
}

type (
	guard  func(s *Session, in input) bool
	action func(s *Session, in input) error
)

// rule is one row of the transition table. A nil sources list matches every
// state but Exit. internal rules run their actions without leaving the state.
type rule struct {
	trigger  Trigger
	sources  []State
	guards   []guard
	prepare  []action
	before   []action
	dest     State
	internal bool
}

func (r rule) matches(in input, state State) bool {
	if r.trigger != in.trigger {
		return false
	}
	if r.sources == nil {
		return state != StateExit
	}
	for _, src := range r.sources {
		if src == state {
			return true
		}
	}
	return false
}

func from(states ...State) []State { return states }

// transitions is evaluated in order, first match wins. When a rule's guards
// fail the next rule for the same trigger and source is tried.
func transitions() []rule {
	return []rule{
		{trigger: TriggerBegin, sources: from(StateInit), dest: StateStart},

		{trigger: TriggerKeyDown, guards: []guard{isEscape}, dest: StateExit},

		{trigger: TriggerKeyDown, sources: from(StateStart), guards: []guard{isLeftOrRight}, dest: StateCountdown},

		{
			trigger: TriggerCountdownTick, sources: from(StateCountdown),
			prepare: []action{(*Session).decrementCountdown},
			guards:  []guard{isCountdownDone},
			before:  []action{(*Session).takePhoto},
			dest:    StateReviewPhoto,
		},
		{
			trigger: TriggerCountdownTick, sources: from(StateCountdown),
			before:   []action{(*Session).showCountdown},
			internal: true,
		},

		{
			trigger: TriggerKeyDown, sources: from(StateReviewPhoto),
			guards: []guard{isRight, hasEnoughPhotos},
			before: []action{(*Session).createPrint},
			dest:   StatePrintPhoto,
		},
		{trigger: TriggerKeyDown, sources: from(StateReviewPhoto), guards: []guard{isRight}, dest: StateCountdown},
		{
			trigger: TriggerKeyDown, sources: from(StateReviewPhoto),
			guards: []guard{isLeft},
			before: []action{(*Session).deleteLastPhoto},
			dest:   StateCountdown,
		},

		{
			trigger: TriggerKeyDown, sources: from(StatePrintPhoto),
			guards: []guard{isRight},
			before: []action{(*Session).submitPrint},
			dest:   StateSentToPrint,
		},
		{
			trigger: TriggerKeyDown, sources: from(StatePrintPhoto),
			guards: []guard{isLeft},
			before: []action{(*Session).incrementPrintCount},
			dest:   StatePrintPhoto,
		},

		{trigger: TriggerPrintNotifyExpired, sources: from(StateSentToPrint), dest: StateStart},
		{trigger: TriggerKeyDown, sources: from(StateSentToPrint), guards: []guard{isRight}, dest: StateStart},
		{
			trigger: TriggerPrintFinished, sources: from(StateSentToPrint),
			before:   []action{(*Session).markPrintDone},
			internal: true,
		},
	}
}

// stateActions lists entry and exit actions, run in declared order.
type stateActions struct {
	entry []action
	exit  []action
}

func states() map[State]stateActions {
	return map[State]stateActions{
		StateStart: {
			entry: []action{(*Session).clearPhotos, (*Session).resetPrintVariables, (*Session).renderStart},
			exit:  []action{(*Session).clearScreen},
		},
		StateCountdown: {
			entry: []action{(*Session).renderCountdown, (*Session).startCountdownTimer},
			exit:  []action{(*Session).stopCountdownTimer, (*Session).clearScreen},
		},
		StateReviewPhoto: {
			entry: []action{(*Session).renderReviewPhoto},
			exit:  []action{(*Session).clearScreen},
		},
		StatePrintPhoto: {
			entry: []action{(*Session).renderPrintPhoto},
			exit:  []action{(*Session).clearScreen},
		},
		StateSentToPrint: {
			entry: []action{(*Session).renderSentToPrint, (*Session).startPrintNotifyTimer, (*Session).startPrintPollTimer},
			exit:  []action{(*Session).stopPrintNotifyTimer, (*Session).stopPrintPollTimer, (*Session).clearScreen},
		},
		StateExit: {
			entry: []action{(*Session).exitApp},
		},
	}
}

// guards

func isEscape(_ *Session, in input) bool { return in.key == event.KeyEscape }

func isLeft(_ *Session, in input) bool { return in.key == event.KeyLeft }

func isRight(_ *Session, in input) bool { return in.key == event.KeyRight }

func isLeftOrRight(_ *Session, in input) bool {
	return in.key == event.KeyLeft || in.key == event.KeyRight
}

func isCountdownDone(s *Session, _ input) bool { return s.countdown < 0 }

func hasEnoughPhotos(s *Session, _ input) bool {
	return len(s.deps.Photos.Photos()) >= s.settings.MinPhotos
}
