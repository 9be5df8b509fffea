package domain

// Stage is a step of the per-request relay lifecycle.
//
//	received -> validated -> built -> completing -> responding -> done
//
// rejected is terminal from received or validated; failed is terminal from completing.
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidated  Stage = "validated"
	StageBuilt      Stage = "built"
	StageCompleting Stage = "completing"
	StageResponding Stage = "responding"
	StageDone       Stage = "done"
	StageRejected   Stage = "rejected"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageRejected || s == StageFailed
}

// FailureStage returns the terminal stage for an error of the given kind.
// Input problems reject the request; everything else fails it.
func FailureStage(kind ErrorKind) Stage {
	switch kind {
	case KindInvalidInput, KindUnsupportedMedia, KindMethodNotAllowed, KindRateLimited:
		return StageRejected
	default:
		return StageFailed
	}
}
