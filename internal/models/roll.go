package models

import "time"

// Roll is one persisted dice throw
type Roll struct {
	ID          int64     `json:"id"`
	RollerID    int64     `json:"roller_id"`
	CampaignID  int64     `json:"campaign_id"`
	Description string    `json:"description"`
	Setup       string    `json:"setup"` // e.g. "3d10+2"
	Result      int       `json:"result"`
	RolledAt    time.Time `json:"rolled_at"`
}

// RollView is a roll joined with its campaign and roller for display
type RollView struct {
	Roll
	CampaignName string `json:"campaign_name"`
	CampaignURL  string `json:"campaign_url"`
	RollerLogin  string `json:"roller_login"`
}

// Sort columns accepted by RollListFilter.OrderBy
const (
	SortRoller      = "roller_ID"
	SortCampaign    = "campaign_name"
	SortSetup       = "roll_setup"
	SortDescription = "roll_description"
	SortResult      = "roll_result"
	SortDatetime    = "roll_datetime"
)

// RollListFilter selects one page of the roll history
type RollListFilter struct {
	OrderBy    string // one of the Sort* columns, empty for newest first
	Descending bool
	Limit      int
	Offset     int
}

// RollPage is one page of the roll history
type RollPage struct {
	Rolls    []RollView
	Total    int
	Page     int
	PerPage  int
	NumPages int
}
