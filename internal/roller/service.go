// Package roller records dice rolls against campaigns and reads back the
// roll history.
package roller

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ninthcircle/diceroller/internal/apperr"
	"github.com/ninthcircle/diceroller/internal/dice"
	"github.com/ninthcircle/diceroller/internal/metrics"
	"github.com/ninthcircle/diceroller/internal/models"
	"github.com/ninthcircle/diceroller/internal/options"
)

// CampaignStore reads campaigns
type CampaignStore interface {
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	ListActive(ctx context.Context) ([]models.Campaign, error)
}

// RollStore persists and lists rolls
type RollStore interface {
	Create(ctx context.Context, roll *models.Roll) error
	List(ctx context.Context, filter models.RollListFilter) ([]models.RollView, int, error)
	Latest(ctx context.Context, limit int) ([]models.RollView, error)
	Count(ctx context.Context) (int, error)
}

// RollRequest is a submitted roll form
type RollRequest struct {
	RollerID    int64
	CampaignID  int64
	Count       int
	Faces       int
	Modifier    int
	Description string
}

// RollResult is a stored roll with the campaign it was made for
type RollResult struct {
	Roll     models.Roll
	Campaign models.Campaign
}

// HistoryRequest selects a page of the roll history
type HistoryRequest struct {
	OrderBy    string
	Descending bool
	Page       int
}

// Service implements rolling and the history views
type Service struct {
	campaigns CampaignStore
	rolls     RollStore
	roller    *dice.Roller
	perPage   int
	embedMax  int
	logger    *slog.Logger
}

// New creates a Service. The page size is read from the option store once.
// A nil roller gets a randomly seeded one.
func New(ctx context.Context, campaigns CampaignStore, rolls RollStore, opts options.Store, roller *dice.Roller, embedMax int, logger *slog.Logger) (*Service, error) {
	perPage, err := options.GetInt(ctx, opts, options.RollsPerPage, options.DefaultRollsPerPage)
	if err != nil {
		return nil, err
	}
	if roller == nil {
		roller = dice.NewRoller()
	}
	if embedMax < 1 {
		embedMax = 100
	}

	return &Service{
		campaigns: campaigns,
		rolls:     rolls,
		roller:    roller,
		perPage:   perPage,
		embedMax:  embedMax,
		logger:    logger,
	}, nil
}

// PerPage returns the history page size
func (s *Service) PerPage() int {
	return s.perPage
}

// ActiveCampaigns returns the campaigns a roll can be made for
func (s *Service) ActiveCampaigns(ctx context.Context) ([]models.Campaign, error) {
	campaigns, err := s.campaigns.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// Roll throws the requested dice and stores the result. The campaign must
// exist and be active.
func (s *Service) Roll(ctx context.Context, req RollRequest) (*RollResult, error) {
	campaign, err := s.campaigns.GetByID(ctx, req.CampaignID)
	if err != nil {
		metrics.IncRollFailures()
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign == nil || !campaign.Active {
		metrics.IncRollFailures()
		return nil, apperr.Validation("", "campaign %d is not open for rolls", req.CampaignID)
	}

	roll := models.Roll{
		RollerID:    req.RollerID,
		CampaignID:  campaign.ID,
		Description: req.Description,
		Setup:       dice.Label(req.Count, req.Faces, req.Modifier),
		Result:      s.roller.Roll(req.Count, req.Faces, req.Modifier),
	}

	if err := s.rolls.Create(ctx, &roll); err != nil {
		metrics.IncRollFailures()
		return nil, fmt.Errorf("failed to store roll: %w", err)
	}

	metrics.IncRolls(campaign.Name)
	s.logger.Info("roll stored",
		"roll_id", roll.ID,
		"campaign_id", campaign.ID,
		"roller_id", roll.RollerID,
		"setup", roll.Setup,
		"result", roll.Result,
	)

	return &RollResult{Roll: roll, Campaign: *campaign}, nil
}

// History returns one page of the roll history. Pages below 1 are treated
// as page 1; pages past the end are empty.
func (s *Service) History(ctx context.Context, req HistoryRequest) (*models.RollPage, error) {
	page := max(req.Page, 1)

	// the offset of such a page does not fit in an int; it is past the end
	if page-1 > math.MaxInt/s.perPage {
		total, err := s.rolls.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count rolls: %w", err)
		}
		return s.rollPage([]models.RollView{}, total, page), nil
	}

	rolls, total, err := s.rolls.List(ctx, models.RollListFilter{
		OrderBy:    req.OrderBy,
		Descending: req.Descending,
		Limit:      s.perPage,
		Offset:     (page - 1) * s.perPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rolls: %w", err)
	}

	return s.rollPage(rolls, total, page), nil
}

func (s *Service) rollPage(rolls []models.RollView, total, page int) *models.RollPage {
	return &models.RollPage{
		Rolls:    rolls,
		Total:    total,
		Page:     page,
		PerPage:  s.perPage,
		NumPages: (total + s.perPage - 1) / s.perPage,
	}
}

// Latest returns the newest rolls for the widget. A count below 1 means the
// history page size; counts above the embed limit are capped.
func (s *Service) Latest(ctx context.Context, count int) ([]models.RollView, error) {
	if count < 1 {
		count = s.perPage
	}
	count = min(count, s.embedMax)

	rolls, err := s.rolls.Latest(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest rolls: %w", err)
	}
	metrics.IncEmbedRenders()
	return rolls, nil
}
