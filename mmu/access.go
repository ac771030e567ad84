package mmu

// AccessKind classifies what happened during a step.
type AccessKind uint8

// Access kinds.
const (
	AccessReset AccessKind = iota
	AccessTranslateHit
	AccessSegFault
	AccessDisabledMatch
	AccessTranslateProtFault
	AccessRegisterRead
	AccessRegisterWrite
	AccessRegisterProtFault
)

var accessKindNames = [...]string{
	AccessReset:              "reset",
	AccessTranslateHit:       "translate-hit",
	AccessSegFault:           "seg-fault",
	AccessDisabledMatch:      "disabled-match",
	AccessTranslateProtFault: "translate-prot-fault",
	AccessRegisterRead:       "register-read",
	AccessRegisterWrite:      "register-write",
	AccessRegisterProtFault:  "register-prot-fault",
}

// String returns a short name for the access kind.
func (k AccessKind) String() string {
	if int(k) < len(accessKindNames) {
		return accessKindNames[k]
	}
	return "unknown"
}

// Access describes one serviced step.
type Access struct {
	Kind AccessKind
	// Group is the descriptor involved, or -1 when none matched.
	Group int
}
