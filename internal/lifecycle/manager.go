package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ninthcircle/diceroller/internal/apperr"
	"github.com/ninthcircle/diceroller/internal/db"
	"github.com/ninthcircle/diceroller/internal/options"
)

// SchemaVersion is the version of the plugin table layout
const SchemaVersion = "0.1"

const subsystem = "lifecycle"

// Manager applies component actions against a database and option store
type Manager struct {
	db         *db.DB
	options    options.Store
	components []Component
	logger     *slog.Logger
}

// New creates a Manager. Components are installed in the given order and
// uninstalled in reverse.
func New(database *db.DB, opts options.Store, logger *slog.Logger, components ...Component) *Manager {
	return &Manager{
		db:         database,
		options:    opts,
		components: components,
		logger:     logger,
	}
}

// TableStatus reports whether a component's table exists
type TableStatus struct {
	Component string
	Table     string
	Exists    bool
}

// Status describes what is currently installed
type Status struct {
	Installed bool
	Version   string
	Tables    []TableStatus
}

// Validate checks every action of every component, returning a fatal error
// for the first action of an unknown kind.
func (m *Manager) Validate() error {
	for _, c := range m.components {
		for _, a := range c.InstallActions(m.db.Tables) {
			switch a.Kind {
			case KindSQLInstall, KindSQLUninstall, KindOption:
			default:
				return apperr.Fatal(subsystem,
					"component %s required an action of an unknown type: %s", c.Name(), a.Kind)
			}
		}
	}
	return nil
}

// Install records the schema version, then runs sql-install and option
// actions in component order. Nothing runs if any action is invalid.
func (m *Manager) Install(ctx context.Context) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if err := m.options.Update(ctx, options.DBVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to store schema version: %w", err)
	}

	for _, c := range m.components {
		for _, a := range c.InstallActions(m.db.Tables) {
			switch a.Kind {
			case KindSQLInstall:
				if _, err := m.db.ExecContext(ctx, a.Value); err != nil {
					return fmt.Errorf("install %s: %w", c.Name(), err)
				}
			case KindOption:
				if err := m.options.Add(ctx, a.Name, a.Value); err != nil {
					return fmt.Errorf("install %s: option %s: %w", c.Name(), a.Name, err)
				}
			}
		}
		m.logger.Info("component installed", "component", c.Name(), "table", c.Table(m.db.Tables))
	}

	return nil
}

// Uninstall runs sql-uninstall actions and clears options, walking
// components and their actions in reverse order, then forgets the schema
// version.
func (m *Manager) Uninstall(ctx context.Context) error {
	if err := m.Validate(); err != nil {
		return err
	}

	for i := len(m.components) - 1; i >= 0; i-- {
		c := m.components[i]
		actions := c.InstallActions(m.db.Tables)
		for j := len(actions) - 1; j >= 0; j-- {
			a := actions[j]
			switch a.Kind {
			case KindSQLUninstall:
				if _, err := m.db.ExecContext(ctx, a.Value); err != nil {
					return fmt.Errorf("uninstall %s: %w", c.Name(), err)
				}
			case KindOption:
				if err := m.options.Delete(ctx, a.Name); err != nil {
					return fmt.Errorf("uninstall %s: option %s: %w", c.Name(), a.Name, err)
				}
			}
		}
		m.logger.Info("component uninstalled", "component", c.Name())
	}

	if err := m.options.Delete(ctx, options.DBVersion); err != nil {
		return fmt.Errorf("failed to clear schema version: %w", err)
	}
	return nil
}

// Status reports the installed schema version and which tables exist
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	version, installed, err := m.options.Get(ctx, options.DBVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}

	st := &Status{Installed: installed, Version: version}
	for _, c := range m.components {
		table := c.Table(m.db.Tables)
		exists, err := m.db.TableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		st.Tables = append(st.Tables, TableStatus{Component: c.Name(), Table: table, Exists: exists})
	}
	return st, nil
}
