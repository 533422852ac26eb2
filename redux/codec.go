// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/fdb

// Package redux binds the vendor redux image decoder, a native module loaded
// at runtime, and implements the buffer protocol the module calls back into.
//
// A Codec loads its module lazily on the first Decode. A failed load disables
// the Codec for its lifetime; create a new Codec to try again.
package redux

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// Loader opens a redux module.
type Loader func() (Module, error)

// Option configures a Codec.
type Option func(*Codec)

// WithLibraryPath loads the native module from path instead of LibraryName().
func WithLibraryPath(path string) Option {
	return func(c *Codec) {
		c.loader = func() (Module, error) {
			return LoadNative(path)
		}
	}
}

// WithLoader replaces the native loader.
func WithLoader(loader Loader) Option {
	return func(c *Codec) {
		c.loader = loader
	}
}

// WithLogger sets a logger for the codec.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}

// LibraryName returns the platform file name of the native module.
func LibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "redux_runtime.dll"
	case "darwin":
		return "libredux_runtime.dylib"
	default:
		return "libredux_runtime.so"
	}
}

// Codec is a lazily loaded redux decoder handle. It is safe for concurrent use.
type Codec struct {
	loader Loader
	logger *slog.Logger
	module Module
	err    error
	mu     sync.Mutex
	loaded bool
}

// New creates a codec. The module is not loaded until first use.
func New(opts ...Option) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}

	if c.loader == nil {
		name := LibraryName()
		c.loader = func() (Module, error) {
			return LoadNative(name)
		}
	}

	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	return c
}

// Available loads the module if needed and reports whether it can be used.
func (c *Codec) Available() bool {
	_, err := c.load()
	return err == nil
}

// Decode decodes one redux payload.
func (c *Codec) Decode(src []byte) (Image, error) {
	module, err := c.load()
	if err != nil {
		return Image{}, err
	}

	if len(src) == 0 {
		return Image{}, ErrEmptyInput
	}

	s := &session{}
	if status := module.Decompress(src, s); status != 0 {
		return Image{}, fmt.Errorf("%w: status %d", ErrDecode, status)
	}

	return s.result()
}

// Close releases the loaded module. The codec is unusable afterwards.
func (c *Codec) Close() error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = true
	c.err = fmt.Errorf("%w: closed", ErrUnavailable)
	if c.module == nil {
		return nil
	}

	module := c.module
	c.module = nil
	return module.Close()
}

// load resolves the module once; failures are permanent.
func (c *Codec) load() (Module, error) {
	if c == nil {
		return nil, ErrUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.module, c.err
	}

	c.loaded = true
	module, err := c.loader()
	switch {
	case err != nil:
		c.err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	case module == nil:
		c.err = ErrUnavailable
	default:
		c.module = module
		return module, nil
	}

	c.logger.Warn("redux module disabled", "error", c.err)
	return nil, c.err
}
