// Package lifecycle installs and uninstalls the dice roller's tables and
// options. Each Component declares the actions it needs; Install runs them
// in component order and Uninstall undoes them in reverse.
package lifecycle

import (
	"strconv"

	"github.com/ninthcircle/diceroller/internal/db"
	"github.com/ninthcircle/diceroller/internal/options"
)

// ActionKind tells the Manager what to do with an Action
type ActionKind string

const (
	// KindSQLInstall runs Value on install
	KindSQLInstall ActionKind = "sql-install"
	// KindSQLUninstall runs Value on uninstall
	KindSQLUninstall ActionKind = "sql-uninstall"
	// KindOption sets option Name to Value on install (if unset) and
	// deletes it on uninstall
	KindOption ActionKind = "option"
)

// Action is one install or uninstall step of a Component
type Action struct {
	Kind  ActionKind
	Name  string
	Value string
}

// Component is an installable unit owning one table
type Component interface {
	Name() string
	Table(tables db.Tables) string
	InstallActions(tables db.Tables) []Action
}

// DefaultComponents returns the components in install order
func DefaultComponents(seedCampaign bool) []Component {
	return []Component{
		Campaign{Seed: seedCampaign},
		DiceRoller{},
	}
}

// Campaign owns the campaign table
type Campaign struct {
	// Seed inserts a test campaign so rolls can be made right after install
	Seed bool
}

func (Campaign) Name() string { return "Campaign" }

func (Campaign) Table(tables db.Tables) string { return tables.Campaign }

func (c Campaign) InstallActions(tables db.Tables) []Action {
	actions := []Action{
		{
			Kind: KindSQLInstall,
			Value: `CREATE TABLE IF NOT EXISTS ` + tables.Campaign + ` (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				master_ID INTEGER NOT NULL,
				campaign_name TEXT NOT NULL,
				campaign_description TEXT NOT NULL,
				campaign_url TEXT NOT NULL,
				campaign_active TEXT NOT NULL CHECK (campaign_active IN ('0', '1')),
				campaign_start_date TIMESTAMP,
				campaign_end_date TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_` + tables.Campaign + `_active ON ` + tables.Campaign + `(campaign_active);`,
		},
		{
			Kind:  KindSQLUninstall,
			Value: `DROP TABLE IF EXISTS ` + tables.Campaign + `;`,
		},
	}

	if c.Seed {
		actions = append(actions, Action{
			Kind: KindSQLInstall,
			Value: `INSERT OR IGNORE INTO ` + tables.Campaign + `
				(id, master_ID, campaign_name, campaign_description, campaign_url, campaign_active)
				VALUES (1, 0, 'Test Campaign', 'Let''s test the Dice Roller!!!', '', '1');`,
		})
	}

	return actions
}

// DiceRoller owns the roll table and the page size option
type DiceRoller struct{}

func (DiceRoller) Name() string { return "DiceRoller" }

func (DiceRoller) Table(tables db.Tables) string { return tables.Roll }

func (DiceRoller) InstallActions(tables db.Tables) []Action {
	return []Action{
		{
			Kind: KindSQLInstall,
			Value: `CREATE TABLE IF NOT EXISTS ` + tables.Roll + ` (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				roller_ID INTEGER NOT NULL,
				campaign_ID INTEGER NOT NULL,
				roll_description TEXT,
				roll_setup TEXT NOT NULL,
				roll_result INTEGER NOT NULL,
				roll_datetime TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_` + tables.Roll + `_campaign ON ` + tables.Roll + `(campaign_ID);`,
		},
		{
			Kind:  KindSQLUninstall,
			Value: `DROP TABLE IF EXISTS ` + tables.Roll + `;`,
		},
		{
			Kind:  KindOption,
			Name:  options.RollsPerPage,
			Value: strconv.Itoa(options.DefaultRollsPerPage),
		},
	}
}
