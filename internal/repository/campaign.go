package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ninthcircle/diceroller/internal/models"
)

type CampaignRepository struct {
	db    *sql.DB
	table string
}

func NewCampaignRepository(db *sql.DB, table string) *CampaignRepository {
	return &CampaignRepository{db: db, table: table}
}

const campaignColumns = `id, master_ID, campaign_name, campaign_description, campaign_url, campaign_active, campaign_start_date, campaign_end_date`

// Create creates a new campaign
func (r *CampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (master_ID, campaign_name, campaign_description, campaign_url, campaign_active, campaign_start_date, campaign_end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.MasterID, c.Name, c.Description, c.URL, activeFlag(c.Active), nullTime(c.StartDate), nullTime(c.EndDate),
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read campaign id: %w", err)
	}
	return nil
}

// GetByID returns a campaign by ID
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM `+r.table+` WHERE id = ?`, id)

	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListActive returns the campaigns a new roll may be filed under
func (r *CampaignRepository) ListActive(ctx context.Context) ([]models.Campaign, error) {
	return r.List(ctx, models.CampaignListFilter{ActiveOnly: true})
}

// List returns campaigns ordered by ID
func (r *CampaignRepository) List(ctx context.Context, filter models.CampaignListFilter) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM ` + r.table
	if filter.ActiveOnly {
		query += ` WHERE campaign_active = '1'`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}

	return campaigns, rows.Err()
}

// SetActive toggles the active flag, reporting whether the campaign exists
func (r *CampaignRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+r.table+` SET campaign_active = ? WHERE id = ?`, activeFlag(active), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(s rowScanner) (*models.Campaign, error) {
	c := &models.Campaign{}
	var active string
	var start, end sql.NullTime
	err := s.Scan(&c.ID, &c.MasterID, &c.Name, &c.Description, &c.URL, &active, &start, &end)
	if err != nil {
		return nil, err
	}
	c.Active = active == "1"
	if start.Valid {
		c.StartDate = &start.Time
	}
	if end.Valid {
		c.EndDate = &end.Time
	}
	return c, nil
}

func activeFlag(active bool) string {
	if active {
		return "1"
	}
	return "0"
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
