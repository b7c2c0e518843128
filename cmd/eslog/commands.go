package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coffersTech/esrestlog/eslog"
)

// newInitCommand constructs the `init` command.
func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Provision the index template and today's index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := newLogger(cmd)
			if err != nil {
				return err
			}
			res, err := l.Init(cmd.Context())
			out := map[string]any{"index": l.Target()}
			if res.Template != nil {
				out["template_status"] = res.Template.StatusCode
			}
			if res.Index != nil {
				out["index_status"] = res.Index.StatusCode
			}
			_ = json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			return err
		},
	}
}

// newLogCommand constructs the `log` command. A message that parses as a
// JSON object is written as a structured record.
func newLogCommand() *cobra.Command {
	logCmd := &cobra.Command{
		Use:   "log <message|json>",
		Short: "Write a log record to today's index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("level")
			l, err := newLogger(cmd)
			if err != nil {
				return err
			}

			msg := strings.Join(args, " ")
			var payload any = msg
			if trimmed := strings.TrimSpace(msg); strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
				payload = json.RawMessage(trimmed)
			}

			var res *eslog.WriteResult
			switch level = strings.ToUpper(level); level {
			case eslog.LevelInfo:
				res, err = l.Info(cmd.Context(), payload)
			case eslog.LevelWarn:
				res, err = l.Warn(cmd.Context(), payload)
			case eslog.LevelError:
				res, err = l.Error(cmd.Context(), payload)
			default:
				res, err = l.Log(cmd.Context(), level, payload)
			}
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		},
	}
	logCmd.Flags().StringP("level", "l", eslog.LevelInfo, "Level: INFO|WARN|ERROR or any custom name")
	return logCmd
}

// newGetCommand constructs the `get` command.
func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Read a record from today's index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(cmd)
			if err != nil {
				return err
			}
			doc, err := l.GetLog(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(doc)
		},
	}
}

// newSearchCommand constructs the `search` command. Each hit is printed as
// one JSON line after a total line.
func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search today's index with a query-string filter",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(cmd)
			if err != nil {
				return err
			}
			res, err := l.GetLogs(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", res.Total)
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, hit := range res.Hits {
				_ = enc.Encode(hit)
			}
			return nil
		},
	}
}

// newTeardownCommand constructs the `teardown` command.
func newTeardownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Delete today's index and the index template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := newLogger(cmd)
			if err != nil {
				return err
			}
			idx, err := l.DeleteIndex(cmd.Context())
			if err != nil {
				return err
			}
			tpl, err := l.DeleteTemplate(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"index":           l.Target(),
				"index_status":    idx.StatusCode,
				"template_status": tpl.StatusCode,
			})
		},
	}
}

// newPruneCommand constructs the `prune` command.
func newPruneCommand() *cobra.Command {
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete this stream's day indices older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			retention, _ := cmd.Flags().GetDuration("retention")
			l, err := newLogger(cmd)
			if err != nil {
				return err
			}
			deleted, err := l.Prune(cmd.Context(), retention)
			for _, name := range deleted {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return err
		},
	}
	pruneCmd.Flags().Duration("retention", 168*time.Hour, "Keep indices whose day is within this window")
	return pruneCmd
}
