package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/racesms/internal/model"
)

// SentMessage is a message the FakeTransport accepted for sending.
type SentMessage struct {
	Modem  model.Modem
	Number string
	Text   string
	Handle model.Handle
}

// FakeTransport is an in-memory engine.Transport.
//
// Handles look like ModemManager SMS object paths with increasing numbers.
// Failures can be injected per phone number and per step.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeTransport struct {
	mu sync.Mutex

	Modems []model.Modem

	// ListErr fails ListModems.
	ListErr error
	// CreateErr, SendErr and StateErr fail the step for the given phone number.
	CreateErr map[string]error
	SendErr   map[string]error
	StateErr  map[string]error
	// States is the sequence of states reported by successive State calls
	// for one message. The last entry repeats. Defaults to sent.
	States []model.DeliveryState

	nextID   int
	created  map[model.Handle]SentMessage
	polls    map[model.Handle]int
	sent     []SentMessage
	creates  int
	stateLog []model.Handle
}

// NewFakeTransport returns a transport with one modem that reports every
// message as sent.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		Modems: []model.Modem{"/org/freedesktop/ModemManager1/Modem/0"},
	}
}

// ListModems returns the configured modems.
func (f *FakeTransport) ListModems(ctx context.Context) ([]model.Modem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]model.Modem(nil), f.Modems...), nil
}

// Create allocates a handle for the message.
func (f *FakeTransport) Create(ctx context.Context, modem model.Modem, number, text string) (model.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if err := f.CreateErr[number]; err != nil {
		return "", err
	}
	if f.created == nil {
		f.created = make(map[model.Handle]SentMessage)
		f.polls = make(map[model.Handle]int)
	}
	f.nextID++
	h := model.Handle(fmt.Sprintf("/org/freedesktop/ModemManager1/SMS/%d", f.nextID))
	f.created[h] = SentMessage{Modem: modem, Number: number, Text: text, Handle: h}
	return h, nil
}

// Send marks a created message as sent.
func (f *FakeTransport) Send(ctx context.Context, handle model.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.created[handle]
	if !ok {
		return fmt.Errorf("unknown sms %s", handle)
	}
	if err := f.SendErr[msg.Number]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// State reports the next configured state for the message.
func (f *FakeTransport) State(ctx context.Context, handle model.Handle) (model.DeliveryState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.created[handle]
	if !ok {
		return model.StateUnknown, fmt.Errorf("unknown sms %s", handle)
	}
	f.stateLog = append(f.stateLog, handle)
	if err := f.StateErr[msg.Number]; err != nil {
		return model.StateUnknown, err
	}
	if len(f.States) == 0 {
		return model.StateSent, nil
	}
	i := min(f.polls[handle], len(f.States)-1)
	f.polls[handle]++
	return f.States[i], nil
}

// Sent returns the messages that reached Send successfully.
func (f *FakeTransport) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// Creates returns the number of Create calls, including failed ones.
func (f *FakeTransport) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// StateQueries returns the number of State calls.
func (f *FakeTransport) StateQueries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stateLog)
}
