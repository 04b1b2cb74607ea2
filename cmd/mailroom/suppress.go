package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/pkg/address"
	"github.com/dmitrymomot/mailroom/pkg/logger"
)

var errInvalidAddress = errors.New("suppress: invalid email address")

var suppressCmd = &cobra.Command{
	Use:   "suppress",
	Short: "Manage the suppression list",
}

var suppressAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Stop all mail to an address",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuppressAdd,
}

var suppressRemoveCmd = &cobra.Command{
	Use:   "remove [email]",
	Short: "Allow mail to a suppressed address again",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuppressRemove,
}

var suppressCheckCmd = &cobra.Command{
	Use:   "check [email]",
	Short: "Report whether an address is suppressed",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuppressCheck,
}

func init() {
	suppressAddCmd.Flags().String("reason", "manual", "why the address is suppressed (bounce, complaint, unsubscribe)")
	suppressCmd.AddCommand(suppressAddCmd, suppressRemoveCmd, suppressCheckCmd)
}

// withSuppressions connects to the configured store and runs fn against it.
func withSuppressions(cmd *cobra.Command, raw string, fn func(ctx context.Context, d *deps, email string) error) error {
	ctx := cmd.Context()

	email, ok := address.Normalize(raw)
	if !ok {
		return fmt.Errorf("%w: %q", errInvalidAddress, raw)
	}

	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	d, err := connect(ctx, cfg, logger.NewNope())
	if err != nil {
		return err
	}
	defer d.close(context.WithoutCancel(ctx))

	if d.pool == nil {
		cmd.PrintErrln("warning: DATABASE_CONN_URL not set, changes apply to an in-memory list only")
	}
	return fn(ctx, d, email)
}

func runSuppressAdd(cmd *cobra.Command, args []string) error {
	reason, _ := cmd.Flags().GetString("reason")
	return withSuppressions(cmd, args[0], func(ctx context.Context, d *deps, email string) error {
		if err := d.suppressions.Add(ctx, email, reason); err != nil {
			return err
		}
		cmd.Printf("%s suppressed (%s)\n", email, reason)
		return nil
	})
}

func runSuppressRemove(cmd *cobra.Command, args []string) error {
	return withSuppressions(cmd, args[0], func(ctx context.Context, d *deps, email string) error {
		if err := d.suppressions.Remove(ctx, email); err != nil {
			return err
		}
		cmd.Printf("%s removed from the suppression list\n", email)
		return nil
	})
}

func runSuppressCheck(cmd *cobra.Command, args []string) error {
	return withSuppressions(cmd, args[0], func(ctx context.Context, d *deps, email string) error {
		ok, err := d.suppressions.IsSuppressed(ctx, email)
		if err != nil {
			return err
		}
		if ok {
			cmd.Printf("%s is suppressed\n", email)
		} else {
			cmd.Printf("%s is not suppressed\n", email)
		}
		return nil
	})
}
