package orgmock

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/fetchxml"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// Common errors for mock configuration loading.
var (
	ErrFileNotFound = errors.New("mock configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
	ErrEmptyFile    = errors.New("mock configuration file is empty")
)

// Config configures the mock Organization service.
type Config struct {
	// Stateful routes requests no operation matches to an in-memory record
	// store.
	Stateful bool `yaml:"stateful" json:"stateful"`
	// PageSize is the page size for fetches that do not specify a count.
	PageSize int `yaml:"pageSize,omitempty" json:"pageSize,omitempty"`
	// Identity is what WhoAmI answers with. Empty ids are generated.
	Identity Identity `yaml:"identity,omitempty" json:"identity,omitempty"`
	// Roles are the security role names of the current user.
	Roles []string `yaml:"roles,omitempty" json:"roles,omitempty"`
	// Records seed the store in stateful mode.
	Records []Record `yaml:"records,omitempty" json:"records,omitempty"`
	// Operations are canned responses, tried in order before the store.
	Operations []Operation `yaml:"operations,omitempty" json:"operations,omitempty"`
}

// Identity is the caller the mock pretends to be.
type Identity struct {
	UserID         string `yaml:"userId,omitempty" json:"userId,omitempty"`
	BusinessUnitID string `yaml:"businessUnitId,omitempty" json:"businessUnitId,omitempty"`
	OrganizationID string `yaml:"organizationId,omitempty" json:"organizationId,omitempty"`
}

// Record is a seed record with string attributes.
type Record struct {
	Entity     string            `yaml:"entity" json:"entity"`
	ID         string            `yaml:"id,omitempty" json:"id,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Operation is a canned response for a request name.
type Operation struct {
	// Request is the RequestName to answer, or "*" for any.
	Request string `yaml:"request" json:"request"`
	// Match narrows the operation to envelopes meeting every condition.
	Match *Match `yaml:"match,omitempty" json:"match,omitempty"`
	// Delay is applied before responding, as a Go duration or milliseconds.
	Delay string `yaml:"delay,omitempty" json:"delay,omitempty"`
	// Fault, when set, is returned instead of Response.
	Fault *soap.Fault `yaml:"fault,omitempty" json:"fault,omitempty"`
	// Response is the SOAP body. {{xpath:...}}, {{uuid}}, {{now}} and
	// {{timestamp}} are substituted.
	Response string `yaml:"response,omitempty" json:"response,omitempty"`
}

// Match holds request conditions.
type Match struct {
	// XPath maps a selection path to the text the selected node must have.
	XPath map[string]string `yaml:"xpath,omitempty" json:"xpath,omitempty"`
	// Contains lists substrings the raw envelope must contain.
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`
}

// LoadConfig reads a mock configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates a YAML mock configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.PageSize < 0 {
		return fmt.Errorf("pageSize must not be negative, got %d", c.PageSize)
	}
	for _, id := range []string{c.Identity.UserID, c.Identity.BusinessUnitID, c.Identity.OrganizationID} {
		if id == "" {
			continue
		}
		if _, err := entity.CanonicalID(id); err != nil {
			return fmt.Errorf("identity: %w", err)
		}
	}
	for i, r := range c.Records {
		if err := entity.ValidateLogicalName(r.Entity); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
		if r.ID != "" {
			if _, err := entity.CanonicalID(r.ID); err != nil {
				return fmt.Errorf("records[%d]: %w", i, err)
			}
		}
	}
	for i, op := range c.Operations {
		if op.Request == "" {
			return fmt.Errorf("operations[%d]: request is required", i)
		}
		if op.Fault == nil && op.Response == "" {
			return fmt.Errorf("operations[%d] (%s): response or fault is required", i, op.Request)
		}
		if op.Delay != "" {
			if _, err := parseDuration(op.Delay); err != nil {
				return fmt.Errorf("operations[%d] (%s): %w", i, op.Request, err)
			}
		}
	}
	return nil
}

func (c *Config) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return fetchxml.DefaultPageSize
}

// withDefaults returns a copy of the identity with missing ids generated.
func (i Identity) withDefaults() Identity {
	if i.UserID == "" {
		i.UserID = uuid.NewString()
	}
	if i.BusinessUnitID == "" {
		i.BusinessUnitID = uuid.NewString()
	}
	if i.OrganizationID == "" {
		i.OrganizationID = uuid.NewString()
	}
	return i
}

// toEntity converts a seed record, generating an id when none is given.
func (r Record) toEntity() *entity.BusinessEntity {
	e := entity.New(r.Entity)
	e.ID = r.ID
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Set(k, entity.String(r.Attributes[k]))
	}
	return e
}

// parseDuration parses a duration string (supports "100ms", "1s", etc.)
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	// Try parsing as milliseconds number
	ms, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("invalid duration: %s", s)
}
