// Package main is the entry point for the aws-ic-report application.
package main

import (
	"fmt"
	"os"

	"github.com/thirukguru/aws-ic-report/model"
	"github.com/thirukguru/aws-ic-report/service/flag"
	"github.com/thirukguru/aws-ic-report/shared/banner"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "db", "history":
			return runStorageCommand(os.Args[1], os.Args[2:])
		}
	}

	flagService := flag.NewService()
	flags, err := flagService.GetParsedFlags()
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	versionInfo := model.VersionInfo{Version: version, Commit: commit, Date: date}

	if flags.Version {
		fmt.Printf("aws-ic-report version %s\n", versionInfo.Version)
		fmt.Printf("commit: %s\n", versionInfo.Commit)
		fmt.Printf("built at: %s\n", versionInfo.Date)
		return nil
	}

	if consoleInteractive(flags.Output) {
		banner.DrawBannerTitle()
	}

	return runReport(flags, versionInfo)
}
