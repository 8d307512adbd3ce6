package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/inkwell/internal/auth"
	"github.com/zfogg/inkwell/internal/config"
	"github.com/zfogg/inkwell/internal/container"
	"github.com/zfogg/inkwell/internal/vote"
)

// withDeps connects to the database and Redis for the duration of fn
func withDeps(ctx context.Context, cfg *config.Config, fn func(*container.Container) error) error {
	deps, err := container.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Cleanup(context.WithoutCancel(ctx))
	return fn(deps)
}

func parseRef(args []string) (vote.Ref, error) {
	kind, err := vote.ParseKind(args[0])
	if err != nil {
		return vote.Ref{}, err
	}
	if args[1] == "" {
		return vote.Ref{}, errors.New("entity id is required")
	}
	return vote.Ref{Kind: kind, ID: args[1]}, nil
}

// allIDs lists every entity of a kind
func allIDs(ctx context.Context, deps *container.Container, kind vote.Kind) ([]string, error) {
	var ids []string
	err := deps.DB().WithContext(ctx).Table(kind.Table()).Order("created_at").Pluck("id", &ids).Error
	return ids, err
}

type snapshotRow struct {
	Kind     vote.Kind
	ID       string
	Snapshot vote.Snapshot
	Drifted  bool
}

func (r snapshotRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind         vote.Kind `json:"kind"`
		ID           string    `json:"id"`
		LikeCount    int64     `json:"like_count"`
		DislikeCount int64     `json:"dislike_count"`
		Likers       int64     `json:"likers"`
		Dislikers    int64     `json:"dislikers"`
		Drifted      bool      `json:"drifted"`
	}{r.Kind, r.ID, r.Snapshot.Tally.LikeCount, r.Snapshot.Tally.DislikeCount, r.Snapshot.Likers, r.Snapshot.Dislikers, r.Drifted})
}

func printRows(w io.Writer, rows []snapshotRow) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, r := range rows {
		status := "ok"
		if r.Drifted {
			status = "DRIFT"
		}
		fmt.Fprintf(w, "%-7s %s:%s  likes %d/%d  dislikes %d/%d\n",
			status, r.Kind, r.ID,
			r.Snapshot.Tally.LikeCount, r.Snapshot.Likers,
			r.Snapshot.Tally.DislikeCount, r.Snapshot.Dislikers,
		)
	}
	return nil
}

func newInspectCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <kind> <id>",
		Short: "Show counters, voter set sizes and drift for an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withDeps(ctx, cfg, func(deps *container.Container) error {
				snap, err := deps.Ledger().Inspect(ctx, ref.Kind, ref.ID)
				if err != nil {
					return err
				}
				return printRows(cmd.OutOrStdout(), []snapshotRow{{ref.Kind, ref.ID, snap, snap.Drifted()}})
			})
		},
	}
}

func newReconcileCmd(cfg *config.Config) *cobra.Command {
	var all, dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile <kind> [id]",
		Short: "Rewrite counters from voter set sizes",
		Long: `Rewrite like/dislike counters from the size of the voter sets.
Pass an id to repair a single entity, or --all to scan every entity of the kind.
With --dry-run nothing is written and drifted entities make the command fail.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := vote.ParseKind(args[0])
			if err != nil {
				return err
			}
			if all == (len(args) == 2) {
				return errors.New("give either an id or --all")
			}

			ctx := cmd.Context()
			return withDeps(ctx, cfg, func(deps *container.Container) error {
				ids := args[1:]
				if all {
					if ids, err = allIDs(ctx, deps, kind); err != nil {
						return err
					}
				}

				check := deps.Ledger().Reconcile
				if dryRun {
					check = deps.Ledger().Inspect
				}

				rows := make([]snapshotRow, 0, len(ids))
				drifted := 0
				for _, id := range ids {
					snap, err := check(ctx, kind, id)
					if err != nil {
						return fmt.Errorf("reconcile %s:%s: %w", kind, id, err)
					}
					if snap.Drifted() {
						drifted++
					}
					rows = append(rows, snapshotRow{kind, id, snap, snap.Drifted()})
				}
				if err := printRows(cmd.OutOrStdout(), rows); err != nil {
					return err
				}
				if dryRun && drifted > 0 {
					return fmt.Errorf("%d of %d %s counters drifted", drifted, len(rows), kind)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Reconcile every entity of the kind")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report drift without rewriting counters")
	return cmd
}

func newPurgeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <kind> <id>",
		Short: "Delete the voter sets of an entity",
		Long: `Delete the voter sets of an entity, as the deletion workflow does.
Use it for sets left behind by entities that no longer exist.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return withDeps(ctx, cfg, func(deps *container.Container) error {
				if err := deps.Ledger().Forget(ctx, ref); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", ref)
				return nil
			})
		},
	}
}

func newTokenCmd(cfg *config.Config) *cobra.Command {
	var (
		ttl        time.Duration
		byUsername bool
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for local development",
		Long: `Mint a bearer token for local development.
With --username the argument is looked up as a username in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			userID := args[0]
			if byUsername {
				ctx := cmd.Context()
				err := withDeps(ctx, cfg, func(deps *container.Container) error {
					user, err := deps.Users().GetUserByUsername(ctx, args[0])
					if err != nil {
						return fmt.Errorf("look up %q: %w", args[0], err)
					}
					userID = user.ID
					return nil
				})
				if err != nil {
					return err
				}
			}

			token, expires, err := auth.NewTokenService([]byte(cfg.JWTSecret)).GenerateToken(userID, ttl)
			if err != nil {
				return err
			}

			if output == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"user_id":    userID,
					"token":      token,
					"expires_at": expires.UTC(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&byUsername, "username", false, "Treat the argument as a username")
	return cmd
}
