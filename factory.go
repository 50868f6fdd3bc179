package mailer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lattiq/maildispatch/internal/core"
)

// Driver names a mailer implementation.
type Driver string

const (
	// DriverMail submits through the local Submitter, once per recipient.
	DriverMail Driver = "mail"

	// DriverSwift composes rich messages and delegates to a resolved transport.
	DriverSwift Driver = "swift"
)

// Normalize lower-cases and trims the driver name.
func (d Driver) Normalize() Driver {
	return Driver(strings.ToLower(strings.TrimSpace(string(d))))
}

// String returns the string representation of the driver.
func (d Driver) String() string {
	return string(d)
}

// Valid checks if the driver is registered.
func (d Driver) Valid() bool {
	_, ok := drivers[d.Normalize()]
	return ok
}

type constructor func(protocol Protocol, cfg Config) (Mailer, error)

var drivers = map[Driver]constructor{
	DriverMail: func(_ Protocol, cfg Config) (Mailer, error) {
		m, err := NewSimple(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
	DriverSwift: func(protocol Protocol, cfg Config) (Mailer, error) {
		m, err := NewSwift(protocol, cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
}

// Create returns a new mailer for driver. The protocol is only used by
// the swift driver. Configuration errors surface here.
func Create(driver Driver, protocol Protocol, cfg Config, opts ...Option) (Mailer, error) {
	if !driver.Valid() {
		return nil, core.NewError(core.CodeUnknownDriver, fmt.Sprintf("unknown mailer driver %q", string(driver)))
	}
	ctor := drivers[driver.Normalize()]

	for _, opt := range opts {
		opt(&cfg)
	}

	return ctor(protocol, cfg)
}

// Singletons caches one mailer per driver. The first successful creation
// for a driver wins and later configurations are ignored; a failed
// creation is not cached. The zero value is ready to use.
type Singletons struct {
	mu        sync.Mutex
	instances map[Driver]Mailer
}

// Get returns the cached mailer for driver, creating it if absent.
func (s *Singletons) Get(driver Driver, protocol Protocol, cfg Config, opts ...Option) (Mailer, error) {
	if !driver.Valid() {
		return nil, core.NewError(core.CodeUnknownSingletonDriver, fmt.Sprintf("unknown mailer driver %q", string(driver)))
	}

	d := driver.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.instances[d]; ok {
		return m, nil
	}

	m, err := Create(d, protocol, cfg, opts...)
	if err != nil {
		return nil, err
	}

	if s.instances == nil {
		s.instances = make(map[Driver]Mailer)
	}
	s.instances[d] = m

	return m, nil
}

var singletons Singletons

// CreateSingleton returns the process-wide mailer for driver.
func CreateSingleton(driver Driver, protocol Protocol, cfg Config, opts ...Option) (Mailer, error) {
	return singletons.Get(driver, protocol, cfg, opts...)
}
