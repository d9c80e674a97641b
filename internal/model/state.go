package model

import (
	"fmt"
	"strings"
)

// DeliveryState is the transport-observed state of a message.
type DeliveryState string

const (
	StateUnknown      DeliveryState = "unknown"
	StateNotAttempted DeliveryState = "not_attempted"
	StateStored       DeliveryState = "stored"
	StateSending      DeliveryState = "sending"
	StateSent         DeliveryState = "sent"
	StateFailed       DeliveryState = "failed"
)

// ModemManager MMSmsState values, as written by older ledgers.
var legacyStates = map[string]DeliveryState{
	"0": StateUnknown,
	"1": StateStored,
	"2": StateUnknown, // receiving
	"3": StateUnknown, // received
	"4": StateSending,
	"5": StateSent,
}

// ParseDeliveryState parses a state name, a ModemManager numeric state or
// the alias "delivered". Empty input is StateUnknown.
func ParseDeliveryState(s string) (DeliveryState, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StateUnknown, nil
	}
	if st, ok := legacyStates[s]; ok {
		return st, nil
	}
	switch DeliveryState(s) {
	case StateUnknown, StateNotAttempted, StateStored, StateSending, StateSent, StateFailed:
		return DeliveryState(s), nil
	case "delivered":
		return StateSent, nil
	case "receiving", "received":
		return StateUnknown, nil
	}
	return StateUnknown, fmt.Errorf("unknown delivery state %q", s)
}

// Delivered reports whether the state is the terminal "sent" state.
func (s DeliveryState) Delivered() bool {
	return s == StateSent
}

// Pending reports whether the transport may still move the message to
// another state on its own.
func (s DeliveryState) Pending() bool {
	return s == StateStored || s == StateSending
}
