package coordinator

// Command is one of the five high-level recording commands a gesture can
// resolve to. Each dispatches at most one controller call.
type Command int

const (
	CmdStart Command = iota
	CmdStopPushToTalk
	CmdStopHandsFree
	CmdCancel
	CmdDoubleTapSend
)

func (c Command) String() string {
	switch c {
	case CmdStart:
		return "start"
	case CmdStopPushToTalk:
		return "stop_push_to_talk"
	case CmdStopHandsFree:
		return "stop_hands_free"
	case CmdCancel:
		return "cancel"
	case CmdDoubleTapSend:
		return "double_tap_send"
	}
	return "unknown"
}
