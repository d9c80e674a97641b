// Package modem sends SMS through ModemManager using its mmcli command.
package modem

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/racesms/internal/model"
)

// DefaultBinary is the mmcli executable looked up on PATH.
const DefaultBinary = "mmcli"

// DefaultTimeout bounds a single mmcli invocation.
const DefaultTimeout = 30 * time.Second

// Runner executes a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. A non-zero exit is reported with stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Client is an engine.Transport backed by mmcli.
type Client struct {
	Binary  string
	Timeout time.Duration
	Runner  Runner
}

// New returns a Client using binary (DefaultBinary if empty).
func New(binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{Binary: binary, Timeout: DefaultTimeout, Runner: ExecRunner{}}
}

// ListModems returns the object paths of all modems ModemManager knows.
func (c *Client) ListModems(ctx context.Context) ([]model.Modem, error) {
	out, err := c.run(ctx, "-L", "--output-keyvalue")
	if err != nil {
		return nil, fmt.Errorf("list modems: %w", err)
	}

	// modem-list.value[N] : /org/freedesktop/ModemManager1/Modem/K
	kv := keyValues(out)
	n, _ := strconv.Atoi(kv["modem-list.length"])
	modems := make([]model.Modem, 0, n)
	for i := 1; i <= n; i++ {
		value := kv[fmt.Sprintf("modem-list.value[%d]", i)]
		if value == "" || value == "--" {
			continue
		}
		modems = append(modems, model.Modem(value))
	}
	return modems, nil
}

// Create stores a new SMS on the modem and returns its object path.
func (c *Client) Create(ctx context.Context, modem model.Modem, number, text string) (model.Handle, error) {
	spec := fmt.Sprintf("text=%s,number=%s", quote(text), quote(number))
	out, err := c.run(ctx, "-m", string(modem), "--messaging-create-sms="+spec)
	if err != nil {
		return "", fmt.Errorf("create sms: %w", err)
	}

	// "Successfully created new SMS: /org/freedesktop/ModemManager1/SMS/21"
	s := strings.TrimSpace(string(out))
	i := strings.LastIndex(s, ": ")
	if i < 0 || !strings.HasPrefix(s[i+2:], "/") {
		return "", fmt.Errorf("create sms: unexpected mmcli output %q", s)
	}
	return model.Handle(strings.TrimSpace(s[i+2:])), nil
}

// Send sends a previously created SMS.
func (c *Client) Send(ctx context.Context, handle model.Handle) error {
	if _, err := c.run(ctx, "-s", string(handle), "--send"); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}

// State reads the SMS state property.
func (c *Client) State(ctx context.Context, handle model.Handle) (model.DeliveryState, error) {
	out, err := c.run(ctx, "-s", string(handle), "--output-keyvalue")
	if err != nil {
		return model.StateUnknown, fmt.Errorf("sms state: %w", err)
	}
	value, ok := keyValues(out)["sms.properties.state"]
	if !ok {
		return model.StateUnknown, fmt.Errorf("sms state: no state in mmcli output")
	}
	state, err := model.ParseDeliveryState(value)
	if err != nil {
		return model.StateUnknown, fmt.Errorf("sms state: %w", err)
	}
	return state, nil
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Runner.Run(ctx, c.Binary, args...)
}

// keyValues parses mmcli --output-keyvalue lines ("key : value").
func keyValues(out []byte) map[string]string {
	kv := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return kv
}

// quote wraps a value for mmcli's key=value parser, which has no escapes:
// use whichever quote character the value does not contain.
func quote(s string) string {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	default:
		return "'" + strings.ReplaceAll(s, "'", "’") + "'"
	}
}
