package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/thirukguru/aws-ic-report/service/storage"
)

func runStorageCommand(cmd string, args []string) error {
	switch cmd {
	case "db":
		return runDBCommand(args)
	case "history":
		return runHistoryCommand(args)
	default:
		return fmt.Errorf("unsupported command: %s", cmd)
	}
}

func runDBCommand(args []string) error {
	fs := pflag.NewFlagSet("db", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	olderThan := fs.Int("older-than", 30, "Purge runs older than N days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: aws-ic-report db <vacuum|reindex|purge> [--db-path ...]")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sub := rest[0]
	switch sub {
	case "vacuum":
		return store.Vacuum(context.Background())
	case "reindex":
		return store.Reindex(context.Background())
	case "purge":
		count, err := store.PurgeOlderThan(context.Background(), *olderThan)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d runs\n", count)
		return nil
	default:
		return fmt.Errorf("unsupported db command: %s", sub)
	}
}

func runHistoryCommand(args []string) error {
	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	dbPath := fs.String("db-path", "", "SQLite database path")
	limit := fs.Int("limit", 20, "Number of rows to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return fmt.Errorf("usage: aws-ic-report history <list|show>")
	}

	store, err := storage.NewService(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sub := rest[0]
	switch sub {
	case "list":
		runs, err := store.GetRecentRuns(*limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Printf("%d\t%s\t%d account(s)\t%d failed\t%d rows\n",
				r.RunID, r.RunTimestamp.Format("2006-01-02 15:04:05"),
				r.AccountCount, r.FailedAccounts, r.RowCount)
		}
		return nil
	case "show":
		if len(rest) < 2 {
			return fmt.Errorf("usage: aws-ic-report history show <run-id>")
		}
		runID, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			return err
		}
		outcomes, err := store.ListRunAccounts(runID)
		if err != nil {
			return err
		}
		for _, a := range outcomes {
			if a.Status == "ok" {
				fmt.Printf("%s\tok\t%d rows\n", a.AccountID, a.RowCount)
				continue
			}
			fmt.Printf("%s\tfailed\t%s\t%s\t%s\n", a.AccountID, a.Stage, a.ErrorKind, a.Message)
		}
		return nil
	default:
		return fmt.Errorf("unsupported history command: %s", sub)
	}
}
