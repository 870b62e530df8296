package cli

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/editor"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/session"
	"github.com/matzehuels/stagemap/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath overrides the default config file location.
	ConfigPath string

	// In and Out are the terminal used by interactive prompts.
	In  io.Reader
	Out io.Writer

	cfg    *config.Config
	stores func(ctx context.Context, cfg config.Store) (store.Store, error)
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		In:     os.Stdin,
		Out:    os.Stdout,
		stores: store.Open,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig loads the configuration once.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return cfg, err
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("opening store", "backend", cfg.Store.Backend)
	return c.stores(ctx, cfg.Store)
}

// =============================================================================
// Map Sessions
// =============================================================================

// mapSession is an editing session together with the store it came from.
type mapSession struct {
	*session.Session
	store store.Store
}

// openMap loads the map with id and wires an editor around it. confirmer
// answers removal prompts; nil confirms automatically.
func (c *CLI) openMap(ctx context.Context, id string, confirmer editor.Confirmer) (*mapSession, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(ctx, st, id, cfg, session.Options{Confirmer: confirmer, Logger: c.Logger})
	if err != nil {
		st.Close()
		return nil, err
	}
	return &mapSession{Session: sess, store: st}, nil
}

func (s *mapSession) save(ctx context.Context) error {
	return s.Save(ctx, s.store)
}

func (s *mapSession) close() error {
	return s.store.Close()
}

// =============================================================================
// Argument Helpers
// =============================================================================

// parseIndex parses a stage index argument.
func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid stage index %q", s)
	}
	return i, nil
}

// parseFloat parses a coordinate or size argument.
func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", name, s)
	}
	return v, nil
}
