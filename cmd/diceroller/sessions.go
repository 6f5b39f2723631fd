package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ninthcircle/diceroller/internal/repository"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Login session commands",
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired login sessions",
	RunE:  runSessionsCleanup,
}

func init() {
	sessionsCmd.AddCommand(sessionsCleanupCmd)
}

func runSessionsCleanup(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	deleted, err := repository.NewSessionRepository(d.db.DB).DeleteExpired(context.Background())
	if err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}

	fmt.Printf("Expired sessions deleted: %d\n", deleted)
	return nil
}
