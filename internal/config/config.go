// Package config loads racesms settings from a YAML or TOML file.
//
// Files are decoded strictly (unknown keys are errors), validated against
// the embedded CUE schema, and then completed with defaults. Command-line
// flags override file values in the cli package.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/racesms/internal/policy"
)

//go:embed schema.cue
var schemaCUE string

// Defaults applied to fields left empty.
const (
	DefaultLedger      = "sms.csv"
	DefaultSettleDelay = "1s"
	DefaultStatePolls  = 1
	DefaultMMCLI       = "mmcli"
)

// Config holds all settings of a run.
type Config struct {
	Roster      string `yaml:"roster" toml:"roster" json:"roster,omitempty"`
	Results     string `yaml:"results" toml:"results" json:"results,omitempty"`
	Ledger      string `yaml:"ledger" toml:"ledger" json:"ledger,omitempty"`
	SettleDelay string `yaml:"settle_delay" toml:"settle_delay" json:"settle_delay,omitempty"`
	StatePolls  int    `yaml:"state_polls" toml:"state_polls" json:"state_polls,omitempty"`
	Modem       string `yaml:"modem" toml:"modem" json:"modem,omitempty"`
	MMCLI       string `yaml:"mmcli" toml:"mmcli" json:"mmcli,omitempty"`
	// NotifyDNS sends a message to participants who did not start.
	NotifyDNS bool `yaml:"notify_dns" toml:"notify_dns" json:"notify_dns,omitempty"`

	Event     Event     `yaml:"event" toml:"event" json:"event"`
	Templates Templates `yaml:"templates" toml:"templates" json:"templates"`
}

// Event describes the race named in messages.
type Event struct {
	Name       string `yaml:"name" toml:"name" json:"name,omitempty"`
	ResultsURL string `yaml:"results_url" toml:"results_url" json:"results_url,omitempty"`
}

// Templates override the built-in message templates per outcome.
type Templates struct {
	Completed         string `yaml:"completed" toml:"completed" json:"completed,omitempty"`
	MissingCheckpoint string `yaml:"missing_checkpoint" toml:"missing_checkpoint" json:"missing_checkpoint,omitempty"`
	DidNotFinish      string `yaml:"did_not_finish" toml:"did_not_finish" json:"did_not_finish,omitempty"`
	DidNotStart       string `yaml:"did_not_start" toml:"did_not_start" json:"did_not_start,omitempty"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (.toml for TOML, anything else as YAML), validates it and
// applies defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	cfg := &Config{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = decodeTOML(data, cfg)
	} else {
		err = decodeYAML(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config invalid (%s): %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file
		}
		return err
	}
	return nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks cfg against the embedded CUE schema and checks that the
// settle delay parses as a duration.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := def.Unify(ctx.Encode(cfg))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return err
	}

	if cfg.SettleDelay != "" {
		if _, err := time.ParseDuration(cfg.SettleDelay); err != nil {
			return fmt.Errorf("settle_delay: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Ledger == "" {
		c.Ledger = DefaultLedger
	}
	if c.SettleDelay == "" {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.StatePolls == 0 {
		c.StatePolls = DefaultStatePolls
	}
	if c.MMCLI == "" {
		c.MMCLI = DefaultMMCLI
	}
}

// Settle returns the parsed settle delay. Load guarantees it parses.
func (c *Config) Settle() time.Duration {
	d, err := time.ParseDuration(c.SettleDelay)
	if err != nil {
		d, _ = time.ParseDuration(DefaultSettleDelay)
	}
	return d
}

// PolicyOptions converts the message settings for policy.New.
func (c *Config) PolicyOptions() policy.Options {
	return policy.Options{
		Event:             c.Event.Name,
		ResultsURL:        c.Event.ResultsURL,
		NotifyDidNotStart: c.NotifyDNS,
		Completed:         c.Templates.Completed,
		MissingCheckpoint: c.Templates.MissingCheckpoint,
		DidNotFinish:      c.Templates.DidNotFinish,
		DidNotStart:       c.Templates.DidNotStart,
	}
}
