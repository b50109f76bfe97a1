package backend

import (
	"errors"
	"fmt"

	"cashbook/internal/config"
)

var ErrUnsupportedBackend = errors.New("unsupported backend type")

// FromAppConfig picks the store and relay settings out of the app config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	bc := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
	}
	if !bc.Type.IsValid() {
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedBackend, appConfig.DataBackend)
	}
	return bc, nil
}

// Validate checks the settings the chosen backend needs. The relay is
// optional for every backend but needs an exchange once a URL is given.
func (c Config) Validate() error {
	switch {
	case !c.Type.IsValid():
		return fmt.Errorf("%w: %q", ErrUnsupportedBackend, c.Type)
	case c.Type == SQLiteBackend && c.SQLiteDBPath == "":
		return errors.New("sqlite backend needs a database path")
	case c.AMQPURL != "" && c.AMQPExchange == "":
		return errors.New("AMQP exchange is required when an AMQP URL is set")
	}
	return nil
}
