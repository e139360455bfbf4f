package flow

// State is a step of the admin login flow. The coordinator owns exactly one
// State at a time and changes it only through the transition table below.
type State string

const (
	StateCredentials State = "credentials"
	StateMFAVerify   State = "mfa-verify"
	StateMFASetup    State = "mfa-setup"
	StateBackupCodes State = "backup-codes"
	StateSuccess     State = "success"
	StateFailed      State = "failed"
)

// Event names something that happened to the flow, either a server response
// or an explicit user action.
type Event string

const (
	eventLoginVerified    Event = "login-verified"
	eventLoginNeedsVerify Event = "login-needs-verify"
	eventLoginNeedsSetup  Event = "login-needs-setup"
	eventLoginRejected    Event = "login-rejected"
	eventChallengePassed  Event = "challenge-passed"
	eventChallengeFailed  Event = "challenge-failed"
	eventBindVerified     Event = "bind-verified"
	eventBindRejected     Event = "bind-rejected"
	eventCodesSaved       Event = "codes-saved"
	eventBack             Event = "back"
	eventSessionLost      Event = "session-lost"
	eventRestart          Event = "restart"
)

// transitions is the complete flow graph. A missing entry means the event is
// not legal in that state. Rejections are self loops so the step re-renders
// with its error state instead of moving.
var transitions = map[State]map[Event]State{
	StateCredentials: {
		eventLoginVerified:    StateSuccess,
		eventLoginNeedsVerify: StateMFAVerify,
		eventLoginNeedsSetup:  StateMFASetup,
		eventLoginRejected:    StateCredentials,
	},
	StateMFAVerify: {
		eventChallengePassed: StateSuccess,
		eventChallengeFailed: StateMFAVerify,
		eventBack:            StateCredentials,
		eventSessionLost:     StateFailed,
	},
	StateMFASetup: {
		eventBindVerified: StateBackupCodes,
		eventBindRejected: StateMFASetup,
		eventBack:         StateCredentials,
		eventSessionLost:  StateFailed,
	},
	StateBackupCodes: {
		eventCodesSaved:  StateSuccess,
		eventSessionLost: StateFailed,
	},
	StateFailed: {
		eventRestart: StateCredentials,
	},
	// StateSuccess is terminal.
}

// transition resolves an event against the table. The second return reports
// whether the event was legal in the given state.
func transition(from State, ev Event) (State, bool) {
	next, ok := transitions[from][ev]
	return next, ok
}
