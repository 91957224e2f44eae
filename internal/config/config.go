// Package config holds the server settings gathered from flags and the
// RALLY_* environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/rally-backend/internal/engine"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreDynamo   = "dynamodb"
)

type Config struct {
	Bind           string
	Port           int
	AllowedOrigins []string
	Verbose        bool

	ProfileStore string
	DataDir      string
	DatabaseURL  string
	DynamoTable  string

	RoomIdleTimeout time.Duration
	SweepInterval   time.Duration

	WinScore        int
	WinMargin       int
	ScoreCap        int
	LowQualityBonus int
}

// Validate reports every problem at once rather than the first.
func (c *Config) Validate() error {
	var err error
	if c.Port < 1 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port))
	}

	switch c.ProfileStore {
	case StoreMemory:
	case StoreFile:
		if c.DataDir == "" {
			err = multierr.Append(err, errors.New("--data-dir is required for the file profile store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			err = multierr.Append(err, errors.New("--database-url is required for the postgres profile store"))
		}
	case StoreDynamo:
		if c.DynamoTable == "" {
			err = multierr.Append(err, errors.New("--dynamo-table is required for the dynamodb profile store"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown profile store %q (want %s, %s, %s or %s)",
			c.ProfileStore, StoreMemory, StoreFile, StorePostgres, StoreDynamo))
	}

	if c.SweepInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("--sweep-interval must be positive: %v", c.SweepInterval))
	}
	if c.RoomIdleTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("--room-idle-timeout must be positive: %v", c.RoomIdleTimeout))
	}

	return multierr.Append(err, c.Rules().Validate())
}

func (c *Config) Rules() engine.Rules {
	return engine.Rules{
		WinScore:        c.WinScore,
		WinMargin:       c.WinMargin,
		ScoreCap:        c.ScoreCap,
		LowQualityBonus: c.LowQualityBonus,
	}
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
