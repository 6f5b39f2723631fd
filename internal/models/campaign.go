package models

import "time"

// Campaign is a play-by-forum game that rolls are grouped under
type Campaign struct {
	ID          int64      `json:"id"`
	MasterID    int64      `json:"master_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Active      bool       `json:"active"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// CampaignListFilter for filtering campaigns
type CampaignListFilter struct {
	ActiveOnly bool
}
