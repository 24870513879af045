package recurrence

// State tracks a recurring draft from enabling the block to its submission.
type State string

const (
	StateNone        State = "NONE"
	StateConfiguring State = "CONFIGURING"
	StateValid       State = "VALID"
	StateSubmitted   State = "SUBMITTED"
)

type Event int

const (
	EventEnable Event = iota
	EventDisable
	EventEdit
	EventValidated
	EventSaved
)

// Next returns the state after ev. SUBMITTED is terminal.
func (s State) Next(ev Event) State {
	if s == StateSubmitted {
		return s
	}
	switch ev {
	case EventDisable:
		return StateNone
	case EventEnable:
		if s == StateNone {
			return StateConfiguring
		}
	case EventEdit:
		if s == StateValid {
			return StateConfiguring
		}
	case EventValidated:
		if s == StateConfiguring {
			return StateValid
		}
	case EventSaved:
		if s == StateValid {
			return StateSubmitted
		}
	}
	return s
}
