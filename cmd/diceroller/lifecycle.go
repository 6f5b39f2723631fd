package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Create the campaign and roll tables and default options",
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Drop the campaign and roll tables and clear options",
	RunE:  runUninstall,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the installed schema version and tables",
	RunE:  runStatus,
}

var uninstallYes bool

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "Do not ask for confirmation")
}

func runInstall(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.lifecycle().Install(context.Background()); err != nil {
		return err
	}

	fmt.Println("Install completed")
	return printStatus(d)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	if !uninstallYes {
		fmt.Print("This drops every campaign and roll. Continue? [y/N]: ")
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := d.lifecycle().Uninstall(context.Background()); err != nil {
		return err
	}

	fmt.Println("Uninstall completed")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	return printStatus(d)
}

func printStatus(d *deps) error {
	st, err := d.lifecycle().Status(context.Background())
	if err != nil {
		return err
	}

	if st.Installed {
		fmt.Printf("Schema version: %s\n", st.Version)
	} else {
		fmt.Println("Schema version: not installed")
	}
	for _, t := range st.Tables {
		state := "does not exist"
		if t.Exists {
			state = "exists"
		}
		fmt.Printf("  %-12s %-24s %s\n", t.Component, t.Table, state)
	}
	return nil
}
