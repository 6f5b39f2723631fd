package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ninthcircle/diceroller/internal/models"
	"github.com/ninthcircle/diceroller/internal/repository"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Campaign management commands",
}

var campaignAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a campaign",
	RunE:  runCampaignAdd,
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE:  runCampaignList,
}

var campaignActivateCmd = &cobra.Command{
	Use:   "activate [id]",
	Short: "Open a campaign for new rolls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCampaignActive(args[0], true)
	},
}

var campaignDeactivateCmd = &cobra.Command{
	Use:   "deactivate [id]",
	Short: "Close a campaign for new rolls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCampaignActive(args[0], false)
	},
}

var (
	campaignName        string
	campaignDescription string
	campaignURL         string
	campaignMaster      int64
	campaignInactive    bool
	campaignStart       string
	campaignEnd         string
	campaignActiveOnly  bool
)

func init() {
	campaignAddCmd.Flags().StringVar(&campaignName, "name", "", "Campaign name")
	campaignAddCmd.Flags().StringVar(&campaignDescription, "description", "", "Campaign description")
	campaignAddCmd.Flags().StringVar(&campaignURL, "url", "", "Forum URL of the campaign")
	campaignAddCmd.Flags().Int64Var(&campaignMaster, "master", 0, "User ID of the game master")
	campaignAddCmd.Flags().BoolVar(&campaignInactive, "inactive", false, "Create the campaign closed for rolls")
	campaignAddCmd.Flags().StringVar(&campaignStart, "start", "", "Start date (YYYY-MM-DD)")
	campaignAddCmd.Flags().StringVar(&campaignEnd, "end", "", "End date (YYYY-MM-DD)")
	campaignAddCmd.MarkFlagRequired("name")

	campaignListCmd.Flags().BoolVar(&campaignActiveOnly, "active", false, "Only list active campaigns")

	campaignCmd.AddCommand(campaignAddCmd, campaignListCmd, campaignActivateCmd, campaignDeactivateCmd)
}

func runCampaignAdd(cmd *cobra.Command, args []string) error {
	start, err := parseDate(campaignStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseDate(campaignEnd)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	c := &models.Campaign{
		MasterID:    campaignMaster,
		Name:        campaignName,
		Description: campaignDescription,
		URL:         campaignURL,
		Active:      !campaignInactive,
		StartDate:   start,
		EndDate:     end,
	}
	if err := repository.NewCampaignRepository(d.db.DB, d.db.Tables.Campaign).Create(context.Background(), c); err != nil {
		return err
	}

	fmt.Printf("Campaign %q created with ID %d\n", c.Name, c.ID)
	return nil
}

func runCampaignList(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	campaigns, err := repository.NewCampaignRepository(d.db.DB, d.db.Tables.Campaign).
		List(context.Background(), models.CampaignListFilter{ActiveOnly: campaignActiveOnly})
	if err != nil {
		return err
	}

	fmt.Printf("%-6s  %-24s  %-6s  %s\n", "ID", "Name", "Active", "URL")
	fmt.Println(strings.Repeat("-", 80))
	for _, c := range campaigns {
		active := "no"
		if c.Active {
			active = "yes"
		}
		fmt.Printf("%-6d  %-24s  %-6s  %s\n", c.ID, c.Name, active, c.URL)
	}
	return nil
}

func setCampaignActive(arg string, active bool) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid campaign id %q", arg)
	}

	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	found, err := repository.NewCampaignRepository(d.db.DB, d.db.Tables.Campaign).SetActive(context.Background(), id, active)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("campaign %d not found", id)
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Printf("Campaign %d %s\n", id, state)
	return nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
