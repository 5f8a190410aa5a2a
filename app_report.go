package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/thirukguru/aws-ic-report/model"
	"github.com/thirukguru/aws-ic-report/service/accounts"
	"github.com/thirukguru/aws-ic-report/service/aggregator"
	awsconfig "github.com/thirukguru/aws-ic-report/service/aws_config"
	"github.com/thirukguru/aws-ic-report/service/flag"
	awsidentity "github.com/thirukguru/aws-ic-report/service/identitystore"
	"github.com/thirukguru/aws-ic-report/service/output"
	awssso "github.com/thirukguru/aws-ic-report/service/ssoadmin"
	"github.com/thirukguru/aws-ic-report/service/storage"
	awssts "github.com/thirukguru/aws-ic-report/service/sts"
	"github.com/thirukguru/aws-ic-report/shared/spinner"
)

func runReport(flags model.Flags, versionInfo model.VersionInfo) error {
	ctx := context.Background()

	accountIDs := flags.Accounts
	if len(accountIDs) == 0 {
		ids, err := promptForAccounts(os.Stdin)
		if err != nil {
			return err
		}
		accountIDs = ids
	}
	if len(accountIDs) == 0 {
		return fmt.Errorf("no account IDs provided")
	}

	metaStore, err := loadOwners(flags.OwnersFile)
	if err != nil {
		return err
	}

	cfgService := awsconfig.NewService()
	awsCfg, err := cfgService.GetAWSCfg(ctx, flags.Region, flags.Profile)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	stsService := awssts.NewService(awsCfg)
	caller, err := stsService.GetCallerIdentity(ctx)
	if err != nil {
		return fmt.Errorf("credential preflight failed: %w", err)
	}
	interactive := consoleInteractive(flags.Output)
	if interactive {
		fmt.Printf("Authenticated as %s\n", caller.Arn)
		spinner.StartSpinner()
		defer spinner.StopSpinner()
	}

	ssoService := awssso.NewService(awsCfg)
	instance, err := ssoService.GetInstance(ctx)
	if err != nil {
		return err
	}
	identityService := awsidentity.NewService(awsCfg, instance.IdentityStoreID)

	engine := aggregator.NewService(instance, ssoService, identityService, metaStore, aggregator.Options{
		Workers:     flags.Workers,
		MaxAttempts: flags.MaxAttempts,
		FailFast:    flags.FailFast,
		Sort:        flags.Sort,
	})

	result, err := engine.Aggregate(ctx, accountIDs)
	spinner.StopSpinner()
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	outputService := output.NewService(flags.Output)
	if err := outputService.WriteReportFile(flags.ReportFile, result.Rows); err != nil {
		return err
	}
	if err := outputService.Render(output.RenderInput{
		Summary:  result.Summary,
		Rows:     result.Rows,
		Failures: result.Failures,
	}); err != nil {
		return err
	}
	if interactive {
		fmt.Printf("\n✅ Report written to %s\n", flags.ReportFile)
	}

	if flags.Store {
		if err := storeRun(ctx, flags, versionInfo, accountIDs, result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to store run history: %v\n", err)
		}
	}

	if result.Summary.AccountsFailed > 0 {
		return fmt.Errorf("%d of %d account(s) failed; report is incomplete",
			result.Summary.AccountsFailed, result.Summary.AccountsRequested)
	}
	return nil
}

// consoleInteractive reports whether decorative console output (banner,
// spinner, status prints) may be written. JSON mode keeps stdout
// machine-readable for the encoded result that Render emits.
func consoleInteractive(outputFormat string) bool {
	return outputFormat != "json"
}

// promptForAccounts asks for account IDs interactively, matching the
// comma-separated format of --accounts.
func promptForAccounts(r io.Reader) ([]string, error) {
	fmt.Println("Enter Account IDs separated by commas (example: 111111111111,222222222222)")
	fmt.Print("AWS Account IDs: ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read account IDs: %w", err)
		}
		return nil, nil
	}
	return flag.SplitAccounts(scanner.Text()), nil
}

// loadOwners loads the ownership CSV. A missing file degrades to an empty
// store so the run can still report permission data; a malformed file fails.
func loadOwners(path string) (accounts.Store, error) {
	store, err := accounts.LoadCSV(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: owners file %q not found; account details columns will be empty\n", path)
			return accounts.NewStore(nil), nil
		}
		return nil, err
	}
	return store, nil
}

func storeRun(ctx context.Context, flags model.Flags, versionInfo model.VersionInfo, accountIDs []string, result *aggregator.Result) error {
	store, err := storage.NewService(flags.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rowsPerAccount := map[string]int{}
	for _, r := range result.Rows {
		rowsPerAccount[r.AccountNumber]++
	}
	// degraded-reference warnings do not fail an account
	failed := map[string]model.AccountFailure{}
	for _, f := range result.Failures {
		if f.Kind != string(aggregator.KindInconsistentReference) {
			failed[f.AccountID] = f
		}
	}

	runAccounts := make([]storage.RunAccount, 0, len(accountIDs))
	for _, id := range accountIDs {
		if f, ok := failed[id]; ok {
			runAccounts = append(runAccounts, storage.RunAccount{
				AccountID: id,
				Status:    "failed",
				Stage:     f.Stage,
				ErrorKind: f.Kind,
				Message:   f.Message,
			})
			continue
		}
		runAccounts = append(runAccounts, storage.RunAccount{
			AccountID: id,
			Status:    "ok",
			RowCount:  rowsPerAccount[id],
		})
	}

	_, err = store.SaveRun(ctx, storage.SaveRunInput{
		DurationSec: int64(result.Summary.Duration.Seconds()),
		Version:     versionInfo.Version,
		Profile:     flags.Profile,
		Region:      flags.Region,
		RowCount:    result.Summary.RowCount,
		Accounts:    runAccounts,
	})
	return err
}
