package pipeline

import (
	"fmt"
)

type State int

const (
	StateIdle = State(iota)
	StateDecoded
	StateConfigured
	StateStreaming
	StateEncoded
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDecoded:
		return "decoded"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	case StateEncoded:
		return "encoded"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown_state_%d", int(s))
	}
}

// next returns the state that follows s on the successful path.
func (s State) next() State {
	switch s {
	case StateIdle, StateDecoded, StateConfigured, StateStreaming, StateEncoded:
		return s + 1
	default:
		return StateFailed
	}
}

func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
