package dispatch

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from YAML or JSON; the zero-value of every nested field
// inherits its package default.
type Config struct {
	Crew   CrewConfig   `json:"crew" yaml:"crew"`
	Wake   WakeConfig   `json:"wake" yaml:"wake"`
	Events EventsConfig `json:"events" yaml:"events"`
}

// CrewConfig sizes the actor populations and their simulated delays
type CrewConfig struct {
	// Reindeer is the full team size; a delivery needs every member back
	Reindeer int `json:"reindeer" yaml:"reindeer"`

	// Elves is the workshop population; it bounds concurrency only
	Elves int `json:"elves" yaml:"elves"`

	// ElfGroup is how many elves form one consultation group
	ElfGroup int `json:"elfGroup" yaml:"elfGroup"`

	AwayMin time.Duration `json:"awayMin" yaml:"awayMin"`
	AwayMax time.Duration `json:"awayMax" yaml:"awayMax"`
	WorkMin time.Duration `json:"workMin" yaml:"workMin"`
	WorkMax time.Duration `json:"workMax" yaml:"workMax"`
}

// WakeConfig sizes the dispatcher wake queue
type WakeConfig struct {
	// Buffer must cover the worst-case number of outstanding group wakes;
	// zero derives it from the crew sizes.
	Buffer int `json:"buffer" yaml:"buffer"`
}

// EventsConfig selects the observation event transport
type EventsConfig struct {
	// Vendor is the queue vendor used for activity events: memory or fs
	Vendor string `json:"vendor" yaml:"vendor"`

	// JournalURL is the afs base location for the fs vendor
	JournalURL string `json:"journalURL" yaml:"journalURL"`

	// Buffer is the memory vendor queue size
	Buffer int `json:"buffer" yaml:"buffer"`
}

// DefaultConfig returns a Config populated with the canonical defaults:
// nine reindeer, ten elves, consultation groups of three.
func DefaultConfig() *Config {
	return &Config{
		Crew: CrewConfig{
			Reindeer: 9,
			Elves:    10,
			ElfGroup: 3,
			AwayMin:  2 * time.Second,
			AwayMax:  5 * time.Second,
			WorkMin:  time.Second,
			WorkMax:  4 * time.Second,
		},
		Events: EventsConfig{
			Vendor: "memory",
			Buffer: 512,
		},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Crew.Reindeer < 1 {
		return fmt.Errorf("crew.reindeer must be >= 1, got %d", c.Crew.Reindeer)
	}
	if c.Crew.ElfGroup < 1 {
		return fmt.Errorf("crew.elfGroup must be >= 1, got %d", c.Crew.ElfGroup)
	}
	if c.Crew.ElfGroup > c.Crew.Elves {
		return fmt.Errorf("crew.elfGroup %d exceeds crew.elves %d", c.Crew.ElfGroup, c.Crew.Elves)
	}
	if c.Crew.AwayMax < c.Crew.AwayMin {
		return fmt.Errorf("crew.awayMax is below crew.awayMin")
	}
	if c.Crew.WorkMax < c.Crew.WorkMin {
		return fmt.Errorf("crew.workMax is below crew.workMin")
	}
	switch c.Events.Vendor {
	case "", "memory":
	case "fs":
		if c.Events.JournalURL == "" {
			return fmt.Errorf("events.journalURL is required for the fs vendor")
		}
	default:
		return fmt.Errorf("unsupported events.vendor: %s", c.Events.Vendor)
	}
	return nil
}

// wakeBuffer derives a wake queue size that can hold every outstanding group
// wake: one per possible elf group plus the reindeer group, with headroom.
func (c *Config) wakeBuffer() int {
	if c.Wake.Buffer > 0 {
		return c.Wake.Buffer
	}
	groups := 1
	if c.Crew.ElfGroup > 0 {
		groups += c.Crew.Elves / c.Crew.ElfGroup
	}
	return groups * 4
}

// ParseConfig decodes YAML bytes on top of the default configuration and
// validates the result.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
