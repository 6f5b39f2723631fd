package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ninthcircle/diceroller/internal/dice"
)

var rollCmd = &cobra.Command{
	Use:   "roll [NdX+M]",
	Short: "Roll dice locally without storing the result",
	Example: `  diceroller roll 3d10+2
  diceroller roll 1d100 --times 4`,
	Args: cobra.ExactArgs(1),
	RunE: runRoll,
}

var rollTimes int

func init() {
	rollCmd.Flags().IntVarP(&rollTimes, "times", "n", 1, "Number of times to roll")
}

func runRoll(cmd *cobra.Command, args []string) error {
	setup, err := dice.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: %q", err, args[0])
	}
	if setup.Faces < 1 {
		return fmt.Errorf("dice need at least one face: %q", args[0])
	}

	r := dice.NewRoller()
	out := cmd.OutOrStdout()
	for range max(rollTimes, 1) {
		fmt.Fprintf(out, "%s = %d\n", setup, r.RollSetup(setup))
	}
	return nil
}
