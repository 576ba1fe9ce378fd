package world

// State - этап жизненного цикла карты
type State int32

const (
	StateIdle State = iota
	StateNoiseGenerating
	StateClassifying
	StateFinalizing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNoiseGenerating:
		return "noise_generating"
	case StateClassifying:
		return "classifying"
	case StateFinalizing:
		return "finalizing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
