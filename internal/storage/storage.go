// Package storage provides the key/value backends the board blob lives in.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Well-known keys.
const (
	KeyTickets = "ticketflow.tickets"
	KeyUndo    = "ticketflow.undo"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a minimal key/value store. Set always overwrites the whole value.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// Path is the data directory (file) or database file (sqlite).
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case "", DriverFile:
		return NewFileBackend(opts.Path), nil
	case DriverSQLite:
		return OpenSQLite(ctx, opts.Path)
	case DriverRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.KeyPrefix)
	case DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (use file, sqlite, redis or memory)", opts.Driver)
	}
}
