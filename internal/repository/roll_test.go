package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ninthcircle/diceroller/internal/models"
)

func seedRolls(t *testing.T, repo *RollRepository, campaignID int64, n int) []*models.Roll {
	t.Helper()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rolls := make([]*models.Roll, 0, n)
	for i := 1; i <= n; i++ {
		r := &models.Roll{
			RollerID:    1,
			CampaignID:  campaignID,
			Description: fmt.Sprintf("roll %02d", i),
			Setup:       "1d100",
			Result:      (i * 37) % 100,
			RolledAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(context.Background(), r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		rolls = append(rolls, r)
	}
	return rolls
}

func newCampaign(t *testing.T, repo *CampaignRepository, name string) *models.Campaign {
	t.Helper()

	c := &models.Campaign{Name: name, URL: "https://forum.example.com/" + name, Active: true}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("campaign Create() error = %v", err)
	}
	return c
}

func TestRollRepository_CreateAndJoin(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	campaigns := NewCampaignRepository(database.DB, database.Tables.Campaign)
	repo := NewRollRepository(database.DB, database.Tables)
	users := NewUserRepository(database.DB)

	u := &models.User{Login: "gm", PasswordHash: "x"}
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("user Create() error = %v", err)
	}
	c := newCampaign(t, campaigns, "avalon")

	roll := &models.Roll{
		RollerID:    u.ID,
		CampaignID:  c.ID,
		Description: "Spot hidden",
		Setup:       "3d10+2",
		Result:      19,
	}
	if err := repo.Create(ctx, roll); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if roll.ID == 0 || roll.RolledAt.IsZero() {
		t.Fatalf("Create() did not set ID/RolledAt: %+v", roll)
	}

	got, total, err := repo.List(ctx, models.RollListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(got) != 1 {
		t.Fatalf("List() = %d rolls, total %d", len(got), total)
	}

	v := got[0]
	if v.CampaignName != "avalon" || v.CampaignURL != c.URL || v.RollerLogin != "gm" {
		t.Errorf("joined fields = %+v", v)
	}
	if v.Setup != "3d10+2" || v.Result != 19 || v.Description != "Spot hidden" {
		t.Errorf("roll fields = %+v", v)
	}
	if !v.RolledAt.Equal(roll.RolledAt) {
		t.Errorf("RolledAt = %v, want %v", v.RolledAt, roll.RolledAt)
	}
}

func TestRollRepository_Pagination(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	campaigns := NewCampaignRepository(database.DB, database.Tables.Campaign)
	repo := NewRollRepository(database.DB, database.Tables)

	c := newCampaign(t, campaigns, "paged")
	rolls := seedRolls(t, repo, c.ID, 25)

	const perPage = 10
	tests := []struct {
		page    int
		wantLen int
		firstID int64
	}{
		{page: 1, wantLen: 10, firstID: rolls[24].ID},
		{page: 2, wantLen: 10, firstID: rolls[14].ID},
		{page: 3, wantLen: 5, firstID: rolls[4].ID},
		{page: 4, wantLen: 0},
		{page: 100, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			got, total, err := repo.List(ctx, models.RollListFilter{
				Limit:  perPage,
				Offset: (tt.page - 1) * perPage,
			})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != 25 {
				t.Errorf("total = %d, want 25", total)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].ID != tt.firstID {
				t.Errorf("first ID = %d, want %d", got[0].ID, tt.firstID)
			}
			for i := 1; i < len(got); i++ {
				if got[i].ID >= got[i-1].ID {
					t.Errorf("rolls not newest first: %d after %d", got[i].ID, got[i-1].ID)
				}
			}
		})
	}
}

func TestRollRepository_Sorting(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	campaigns := NewCampaignRepository(database.DB, database.Tables.Campaign)
	repo := NewRollRepository(database.DB, database.Tables)

	a := newCampaign(t, campaigns, "alpha")
	z := newCampaign(t, campaigns, "zulu")
	seedRolls(t, repo, z.ID, 3)
	seedRolls(t, repo, a.ID, 3)

	t.Run("result ascending", func(t *testing.T) {
		got, err := repo.ListPage(ctx, models.RollListFilter{OrderBy: models.SortResult})
		if err != nil {
			t.Fatalf("ListPage() error = %v", err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Result < got[i-1].Result {
				t.Fatalf("results not ascending: %d after %d", got[i].Result, got[i-1].Result)
			}
		}
	})

	t.Run("result descending", func(t *testing.T) {
		got, err := repo.ListPage(ctx, models.RollListFilter{OrderBy: models.SortResult, Descending: true})
		if err != nil {
			t.Fatalf("ListPage() error = %v", err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Result > got[i-1].Result {
				t.Fatalf("results not descending: %d after %d", got[i].Result, got[i-1].Result)
			}
		}
	})

	t.Run("campaign name", func(t *testing.T) {
		got, err := repo.ListPage(ctx, models.RollListFilter{OrderBy: models.SortCampaign})
		if err != nil {
			t.Fatalf("ListPage() error = %v", err)
		}
		if got[0].CampaignName != "alpha" || got[len(got)-1].CampaignName != "zulu" {
			t.Errorf("campaign order = %s .. %s", got[0].CampaignName, got[len(got)-1].CampaignName)
		}
	})

	t.Run("unknown column falls back to newest first", func(t *testing.T) {
		got, err := repo.ListPage(ctx, models.RollListFilter{OrderBy: "roll_result; DROP TABLE wp_pbf_dice_roll"})
		if err != nil {
			t.Fatalf("ListPage() error = %v", err)
		}
		if len(got) != 6 {
			t.Fatalf("len = %d, want 6", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].ID >= got[i-1].ID {
				t.Fatalf("rolls not newest first")
			}
		}
	})
}

func TestRollRepository_Latest(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	campaigns := NewCampaignRepository(database.DB, database.Tables.Campaign)
	repo := NewRollRepository(database.DB, database.Tables)

	c := newCampaign(t, campaigns, "latest")
	rolls := seedRolls(t, repo, c.ID, 7)

	got, err := repo.Latest(ctx, 3)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Latest(3) = %d rolls", len(got))
	}
	if got[0].ID != rolls[6].ID || got[2].ID != rolls[4].ID {
		t.Errorf("Latest(3) IDs = %d..%d, want %d..%d", got[0].ID, got[2].ID, rolls[6].ID, rolls[4].ID)
	}
}

// The page and the count are separate statements: rolls inserted between
// them show up in the total but not in the page. The gap never exceeds the
// number of interleaved inserts.
func TestRollRepository_CountRaceIsBounded(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	campaigns := NewCampaignRepository(database.DB, database.Tables.Campaign)
	repo := NewRollRepository(database.DB, database.Tables)

	c := newCampaign(t, campaigns, "race")
	seedRolls(t, repo, c.ID, 12)

	const perPage = 10
	page, err := repo.ListPage(ctx, models.RollListFilter{Limit: perPage, Offset: perPage})
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}

	const concurrentInserts = 3
	seedRolls(t, repo, c.ID, concurrentInserts)

	total, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}

	// page 2 shows 2 rolls but the total now implies 5
	rendered := perPage + len(page)
	if gap := total - rendered; gap < 0 || gap > concurrentInserts {
		t.Errorf("total %d vs rendered %d: gap %d exceeds %d inserts", total, rendered, gap, concurrentInserts)
	}
}

func TestIsSortColumn(t *testing.T) {
	for _, col := range []string{"roller_ID", "campaign_name", "roll_setup", "roll_description", "roll_result", "roll_datetime"} {
		if !IsSortColumn(col) {
			t.Errorf("IsSortColumn(%q) = false", col)
		}
	}
	if IsSortColumn("r.id DESC") {
		t.Error("IsSortColumn accepted raw SQL")
	}
}

func TestRollRepository_NegativeOffset(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	campaigns := NewCampaignRepository(database.DB, database.Tables.Campaign)
	repo := NewRollRepository(database.DB, database.Tables)

	c := newCampaign(t, campaigns, "offsets")
	seedRolls(t, repo, c.ID, 3)

	got, err := repo.ListPage(ctx, models.RollListFilter{Limit: 10, Offset: -10})
	if !errors.Is(err, ErrNegativeOffset) {
		t.Fatalf("ListPage() error = %v, want ErrNegativeOffset", err)
	}
	if got != nil {
		t.Errorf("ListPage() returned %d rolls with a negative offset", len(got))
	}

	if _, _, err := repo.List(ctx, models.RollListFilter{Limit: 10, Offset: -1}); !errors.Is(err, ErrNegativeOffset) {
		t.Errorf("List() error = %v, want ErrNegativeOffset", err)
	}
}
