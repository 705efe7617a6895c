package model

import (
	"strconv"
	"strings"
)

// PhaseCode maps a schedule phase name to the compact code used by the
// results feed. Unknown phases map to "xx", which never joins against real
// results.
func PhaseCode(phase string) string {
	switch strings.ToLower(phase) {
	case "qualification":
		return "qm"
	case "quarterfinal":
		return "qf"
	case "semifinal":
		return "sf"
	case "final":
		return "f"
	case "playoff":
		return "pl"
	case "practice":
		return "pr"
	default:
		return "xx"
	}
}

// JoinKey builds the results lookup key from a phase code and sequence.
func JoinKey(phaseCode string, sequence int) string {
	return joinKey(phaseCode, sequence)
}

func joinKey(phaseCode string, sequence int) string {
	return phaseCode + "_" + strconv.Itoa(sequence)
}
