package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var optionCmd = &cobra.Command{
	Use:   "option",
	Short: "Read and write persisted options",
}

var optionGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print an option value",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptionGet,
}

var optionSetCmd = &cobra.Command{
	Use:   "set [name] [value]",
	Short: "Set an option value",
	Long:  `Set an option value. The running server reads options at startup and must be restarted to pick up changes.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runOptionSet,
}

var optionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all options",
	RunE:  runOptionList,
}

func init() {
	optionCmd.AddCommand(optionGetCmd, optionSetCmd, optionListCmd)
}

func runOptionGet(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	v, ok, err := d.opts.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("option %s is not set", args[0])
	}
	fmt.Println(v)
	return nil
}

func runOptionSet(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.opts.Update(context.Background(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
	return nil
}

func runOptionList(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	all, err := d.opts.All(context.Background())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-24s %s\n", name, all[name])
	}
	return nil
}
