package turn

import (
	"time"

	"github.com/ChiragNSundar/Chirag-clone-sub000/pkg/frames"
)

type InterruptEmitter interface {
	Emit(frame frames.Frame) error
}

func NewInterruptFrame(sessionID string, pts int64) frames.ControlFrame {
	return frames.NewControlFrame(sessionID, pts, frames.ControlInterrupt, nil)
}

func NewEndTurnFrame(sessionID string, pts int64) frames.ControlFrame {
	return frames.NewControlFrame(sessionID, pts, frames.ControlEndTurn, nil)
}

func NewBotSpeechCompleteFrame(sessionID string) frames.ControlFrame {
	return frames.NewControlFrame(sessionID, time.Now().UnixNano(), frames.ControlBotSpeechComplete, nil)
}
