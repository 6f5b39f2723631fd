package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ninthcircle/diceroller/internal/db"
	"github.com/ninthcircle/diceroller/internal/models"
)

// ErrNegativeOffset is returned by ListPage for a negative filter offset
var ErrNegativeOffset = errors.New("negative list offset")

// sortColumns maps the accepted sort keys to SQL expressions
var sortColumns = map[string]string{
	models.SortRoller:      "r.roller_ID",
	models.SortCampaign:    "c.campaign_name",
	models.SortSetup:       "r.roll_setup",
	models.SortDescription: "r.roll_description",
	models.SortResult:      "r.roll_result",
	models.SortDatetime:    "r.roll_datetime",
}

// IsSortColumn reports whether key is accepted as RollListFilter.OrderBy
func IsSortColumn(key string) bool {
	_, ok := sortColumns[key]
	return ok
}

type RollRepository struct {
	db     *sql.DB
	tables db.Tables
}

func NewRollRepository(database *sql.DB, tables db.Tables) *RollRepository {
	return &RollRepository{db: database, tables: tables}
}

// Create inserts a roll and sets its ID
func (r *RollRepository) Create(ctx context.Context, roll *models.Roll) error {
	if roll.RolledAt.IsZero() {
		roll.RolledAt = time.Now()
	}
	roll.RolledAt = roll.RolledAt.UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO `+r.tables.Roll+` (roller_ID, campaign_ID, roll_description, roll_setup, roll_result, roll_datetime)
		VALUES (?, ?, ?, ?, ?, ?)`,
		roll.RollerID, roll.CampaignID, roll.Description, roll.Setup, roll.Result, roll.RolledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create roll: %w", err)
	}
	roll.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read roll id: %w", err)
	}
	return nil
}

// List returns one page of rolls and the total number of rolls.
// The page and the total are read by two separate statements without a
// transaction, so a concurrent insert can make them disagree.
func (r *RollRepository) List(ctx context.Context, filter models.RollListFilter) ([]models.RollView, int, error) {
	rolls, err := r.ListPage(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return rolls, total, nil
}

// Latest returns the newest rolls across all campaigns
func (r *RollRepository) Latest(ctx context.Context, limit int) ([]models.RollView, error) {
	return r.ListPage(ctx, models.RollListFilter{Limit: limit})
}

// ListPage returns rolls joined with campaign and roller, ordered by
// filter.OrderBy. Unknown sort keys fall back to newest first.
func (r *RollRepository) ListPage(ctx context.Context, filter models.RollListFilter) ([]models.RollView, error) {
	query := `
		SELECT r.id, r.roller_ID, r.campaign_ID, COALESCE(r.roll_description, ''), r.roll_setup, r.roll_result, r.roll_datetime,
			c.campaign_name, c.campaign_url, COALESCE(u.login, '')
		FROM ` + r.tables.Roll + ` r
		INNER JOIN ` + r.tables.Campaign + ` c ON r.campaign_ID = c.id
		LEFT JOIN users u ON u.id = r.roller_ID
		ORDER BY ` + orderClause(filter)

	if filter.Offset < 0 {
		return nil, ErrNegativeOffset
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"

	rows, err := r.db.QueryContext(ctx, query, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rolls := []models.RollView{}
	for rows.Next() {
		var v models.RollView
		var rolledAt sql.NullTime
		err := rows.Scan(
			&v.ID, &v.RollerID, &v.CampaignID, &v.Description, &v.Setup, &v.Result, &rolledAt,
			&v.CampaignName, &v.CampaignURL, &v.RollerLogin,
		)
		if err != nil {
			return nil, err
		}
		if rolledAt.Valid {
			v.RolledAt = rolledAt.Time
		}
		rolls = append(rolls, v)
	}

	return rolls, rows.Err()
}

// Count returns the number of rolls that ListPage can return
func (r *RollRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM `+r.tables.Roll+` r
		INNER JOIN `+r.tables.Campaign+` c ON r.campaign_ID = c.id`,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// orderClause only accepts keys from sortColumns; any other sort key,
// including raw column names from the query string, orders newest first
// instead of being placed into the query.
func orderClause(filter models.RollListFilter) string {
	col, ok := sortColumns[filter.OrderBy]
	if !ok {
		return "r.id DESC"
	}
	dir := " ASC"
	if filter.Descending {
		dir = " DESC"
	}
	return col + dir + ", r.id DESC"
}
