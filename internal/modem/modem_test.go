package modem

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/racesms/internal/model"
)

// scriptedRunner returns canned output keyed by the joined argument list.
type scriptedRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   [][]string
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	key := strings.Join(args, " ")
	if err := r.errs[key]; err != nil {
		return nil, err
	}
	out, ok := r.outputs[key]
	if !ok {
		return nil, errors.New("unexpected command: " + key)
	}
	return []byte(out), nil
}

func newTestClient(r *scriptedRunner) *Client {
	c := New("")
	c.Runner = r
	return c
}

func TestListModems(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{
		"-L --output-keyvalue": "modem-list.length   : 2\n" +
			"modem-list.value[1] : /org/freedesktop/ModemManager1/Modem/3\n" +
			"modem-list.value[2] : /org/freedesktop/ModemManager1/Modem/1\n",
	}}

	modems, err := newTestClient(r).ListModems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Modem{
		"/org/freedesktop/ModemManager1/Modem/3",
		"/org/freedesktop/ModemManager1/Modem/1",
	}, modems)
	assert.Equal(t, DefaultBinary, r.calls[0][0])
}

func TestListModems_None(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{
		"-L --output-keyvalue": "modem-list.length : 0\nmodem-list.value  : --\n",
	}}

	modems, err := newTestClient(r).ListModems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, modems)
}

func TestCreate(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{
		"-m /org/freedesktop/ModemManager1/Modem/0 --messaging-create-sms=text='Hi, Jana!',number='+421900111222'": "Successfully created new SMS: /org/freedesktop/ModemManager1/SMS/21\n",
	}}

	h, err := newTestClient(r).Create(context.Background(), "/org/freedesktop/ModemManager1/Modem/0", "+421900111222", "Hi, Jana!")
	require.NoError(t, err)
	assert.Equal(t, model.Handle("/org/freedesktop/ModemManager1/SMS/21"), h)

	id, ok := h.MessageID()
	require.True(t, ok)
	assert.Equal(t, int64(21), id)
}

func TestCreate_UnexpectedOutput(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{
		"-m 0 --messaging-create-sms=text='x',number='1'": "error: couldn't create SMS\n",
	}}

	_, err := newTestClient(r).Create(context.Background(), "0", "1", "x")
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	boom := errors.New("exit status 1")
	r := &scriptedRunner{
		outputs: map[string]string{"-s /sms/1 --send": "successfully sent the SMS\n"},
		errs:    map[string]error{"-s /sms/2 --send": boom},
	}
	c := newTestClient(r)

	require.NoError(t, c.Send(context.Background(), "/sms/1"))
	assert.ErrorIs(t, c.Send(context.Background(), "/sms/2"), boom)
}

func TestState(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{
		"-s /sms/1 --output-keyvalue": "sms.dbus-path : /sms/1\nsms.content.number : +421900111222\nsms.properties.state : sent\n",
		"-s /sms/2 --output-keyvalue": "sms.properties.state : sending\n",
		"-s /sms/3 --output-keyvalue": "sms.dbus-path : /sms/3\n",
	}}
	c := newTestClient(r)

	state, err := c.State(context.Background(), "/sms/1")
	require.NoError(t, err)
	assert.Equal(t, model.StateSent, state)

	state, err = c.State(context.Background(), "/sms/2")
	require.NoError(t, err)
	assert.Equal(t, model.StateSending, state)

	_, err = c.State(context.Background(), "/sms/3")
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'plain'", quote("plain"))
	assert.Equal(t, `"it's"`, quote("it's"))
	assert.Equal(t, "'it’s \"x\"'", quote(`it's "x"`))
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "racesms-no-such-binary")
	assert.Error(t, err)
}
