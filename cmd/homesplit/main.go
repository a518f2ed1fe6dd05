package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"homesplit/internal/amqp"
	"homesplit/internal/cli"
	"homesplit/internal/core"
	"homesplit/internal/engine"
	"homesplit/internal/services"
	"homesplit/internal/storage"
)

const usage = `Usage:
  homesplit report <period> [--from-snapshot]     print a monthly report as JSON
  homesplit matrix <period>                       print the debt matrix view as JSON
  homesplit snapshot <period> [--by <actor>]      freeze the period's report
  homesplit snapshots                             list saved snapshots

  homesplit add-expense --date <d> --payer <id> --amount <v> --debts <id=v,...> [--note <s>] [--by <id>]
  homesplit remove-expense <id> --date <d>
  homesplit add-payment --date <d> --from <id> --to <id> --amount <v> [--note <s>] [--by <id>]
  homesplit remove-payment <id> --date <d>

  homesplit rent-draft <period>                   print a prefilled draft as JSON
  homesplit rent-save <period> [file]             save a rent payload (JSON from file or stdin)
  homesplit rent-finalize <period> [--by <id>]    lock the period's rent record

A period is a calendar month, e.g. 2026-08. Dates use YYYY-MM-DD. Amounts
accept both separator conventions (4.000.000 or 1,234.56) and currency symbols.`

const dateLayout = "2006-01-02"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	reports := services.NewReportService(repo, cfg.ReportCacheSize)

	// The ledger service tolerates a nil publisher, so a CLI run without a
	// broker still works; the worker catches up on its next recompute.
	ledger := services.NewLedgerService(repo, nil)
	if client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err == nil {
		defer client.Close()
		ledger = services.NewLedgerService(repo, client)
	} else {
		logger.Warn("Broker unavailable, ledger changes will not be published", "error", err)
	}

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "report":
		err = runReport(ctx, reports, os.Args[2:])
	case "matrix":
		err = runMatrix(ctx, repo, os.Args[2:])
	case "snapshot":
		err = runSnapshot(ctx, reports, cfg.SnapshotActor, os.Args[2:])
	case "snapshots":
		err = runListSnapshots(ctx, reports)
	case "add-expense":
		err = runAddExpense(ctx, ledger, os.Args[2:])
	case "remove-expense":
		err = runRemoveExpense(ctx, ledger, os.Args[2:])
	case "add-payment":
		err = runAddPayment(ctx, ledger, os.Args[2:])
	case "remove-payment":
		err = runRemovePayment(ctx, ledger, os.Args[2:])
	case "rent-draft":
		err = runRentDraft(ctx, ledger, os.Args[2:])
	case "rent-save":
		err = runRentSave(ctx, ledger, os.Args[2:])
	case "rent-finalize":
		err = runRentFinalize(ctx, ledger, cfg.SnapshotActor, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runReport(ctx context.Context, reports *services.ReportService, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	fromSnapshot := fs.Bool("from-snapshot", false, "read the frozen snapshot instead of recomputing")
	period, err := parsePeriodArg(fs, args)
	if err != nil {
		return err
	}

	if *fromSnapshot {
		r, err := reports.Snapshot(ctx, period)
		if err != nil {
			return err
		}
		return printJSON(r)
	}
	r, err := reports.Live(ctx, period)
	if err != nil {
		return err
	}
	return printJSON(r)
}

func runMatrix(ctx context.Context, repo *storage.Repository, args []string) error {
	fs := flag.NewFlagSet("matrix", flag.ExitOnError)
	period, err := parsePeriodArg(fs, args)
	if err != nil {
		return err
	}

	roster, err := repo.Roster(ctx)
	if err != nil {
		return err
	}
	expenses, err := repo.ListExpensesByPeriod(ctx, period)
	if err != nil {
		return err
	}
	payments, err := repo.ListPaymentsByPeriod(ctx, period)
	if err != nil {
		return err
	}
	return printJSON(engine.BuildMonthlyView(roster, expenses, payments))
}

func runSnapshot(ctx context.Context, reports *services.ReportService, defaultActor string, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	by := fs.String("by", defaultActor, "who is recorded as taking the snapshot")
	period, err := parsePeriodArg(fs, args)
	if err != nil {
		return err
	}

	frozen, err := reports.SaveSnapshot(ctx, period, *by)
	if err != nil {
		return err
	}
	fmt.Printf("Snapshot saved for %s by %s\n", frozen.Period.String(), frozen.Meta.SnapshotBy)
	return nil
}

func runListSnapshots(ctx context.Context, reports *services.ReportService) error {
	infos, err := reports.ListSnapshots(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No snapshots saved")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s\tby %s\tat %s\n", info.Period.String(), info.SnapshotBy, info.SnapshotAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runAddExpense(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("add-expense", flag.ExitOnError)
	dateArg := fs.String("date", "", "expense date (YYYY-MM-DD)")
	payer := fs.String("payer", "", "member who paid")
	amount := fs.String("amount", "", "amount paid")
	debtsArg := fs.String("debts", "", "comma-separated member=amount owed shares")
	note := fs.String("note", "", "free-form note")
	by := fs.String("by", "", "who entered the expense")
	if err := fs.Parse(args); err != nil {
		return err
	}

	date, err := time.Parse(dateLayout, *dateArg)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}
	debts, err := parseDebts(*debtsArg)
	if err != nil {
		return err
	}

	saved, err := ledger.AddExpense(ctx, core.Expense{
		Date:      date,
		PayerID:   *payer,
		Amount:    core.ParseAmount(*amount),
		Debts:     debts,
		Note:      *note,
		CreatedBy: *by,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Expense %s saved for %s\n", saved.ID, core.PeriodOf(saved.Date).String())
	return nil
}

func runRemoveExpense(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("remove-expense", flag.ExitOnError)
	dateArg := fs.String("date", "", "expense date (YYYY-MM-DD), locates the period to recompute")
	id, err := parseIDArg(fs, args)
	if err != nil {
		return err
	}
	date, err := time.Parse(dateLayout, *dateArg)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}

	if err := ledger.RemoveExpense(ctx, id, date); err != nil {
		return err
	}
	fmt.Printf("Expense %s removed\n", id)
	return nil
}

func runAddPayment(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("add-payment", flag.ExitOnError)
	dateArg := fs.String("date", "", "payment date (YYYY-MM-DD)")
	from := fs.String("from", "", "member who paid")
	to := fs.String("to", "", "member who received")
	amount := fs.String("amount", "", "amount transferred")
	note := fs.String("note", "", "free-form note")
	by := fs.String("by", "", "who entered the payment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	date, err := time.Parse(dateLayout, *dateArg)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}

	saved, err := ledger.RecordPayment(ctx, core.Payment{
		Date:      date,
		FromID:    *from,
		ToID:      *to,
		Amount:    core.ParseAmount(*amount),
		Note:      *note,
		CreatedBy: *by,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Payment %s saved for %s\n", saved.ID, core.PeriodOf(saved.Date).String())
	return nil
}

func runRemovePayment(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("remove-payment", flag.ExitOnError)
	dateArg := fs.String("date", "", "payment date (YYYY-MM-DD), locates the period to recompute")
	id, err := parseIDArg(fs, args)
	if err != nil {
		return err
	}
	date, err := time.Parse(dateLayout, *dateArg)
	if err != nil {
		return fmt.Errorf("invalid --date: %w", err)
	}

	if err := ledger.RemovePayment(ctx, id, date); err != nil {
		return err
	}
	fmt.Printf("Payment %s removed\n", id)
	return nil
}

func runRentDraft(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("rent-draft", flag.ExitOnError)
	period, err := parsePeriodArg(fs, args)
	if err != nil {
		return err
	}

	draft, err := ledger.NextRentDraft(ctx, period)
	if err != nil {
		return err
	}
	return printJSON(draft)
}

func runRentSave(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("rent-save", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("expected a period and an optional payload file, got %d arguments", fs.NArg())
	}
	period, err := core.ParsePeriod(fs.Arg(0))
	if err != nil {
		return err
	}

	in := os.Stdin
	if fs.NArg() == 2 {
		f, err := os.Open(fs.Arg(1))
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	payload, err := decodeRentPayload(in)
	if err != nil {
		return err
	}

	saved, err := ledger.SaveRent(ctx, period, payload)
	if err != nil {
		return err
	}
	fmt.Printf("Rent saved for %s: total %s\n", saved.Period.String(), saved.Total)
	return nil
}

func runRentFinalize(ctx context.Context, ledger *services.LedgerService, defaultActor string, args []string) error {
	fs := flag.NewFlagSet("rent-finalize", flag.ExitOnError)
	by := fs.String("by", defaultActor, "who finalizes the record")
	period, err := parsePeriodArg(fs, args)
	if err != nil {
		return err
	}

	rec, err := ledger.FinalizeRent(ctx, period, *by)
	if err != nil {
		return err
	}
	fmt.Printf("Rent finalized for %s by %s\n", rec.Period.String(), rec.FinalizedBy)
	return nil
}

// parsePeriodArg reads the positional period argument, accepting flags on
// either side of it.
func parsePeriodArg(fs *flag.FlagSet, args []string) (core.Period, error) {
	if err := fs.Parse(args); err != nil {
		return core.Period{}, err
	}
	if fs.NArg() < 1 {
		return core.Period{}, fmt.Errorf("expected a period argument")
	}
	rest := fs.Args()
	periodArg := rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return core.Period{}, err
	}
	if fs.NArg() != 0 {
		return core.Period{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return core.ParsePeriod(periodArg)
}

// parseIDArg reads the positional record ID, accepting flags on either side.
func parseIDArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 {
		return "", fmt.Errorf("expected a record ID argument")
	}
	rest := fs.Args()
	id := rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return "", err
	}
	if fs.NArg() != 0 {
		return "", fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return id, nil
}

// parseDebts parses "member=amount,member=amount" into a debts map. Amounts
// go through the same normalizer as every other money input.
func parseDebts(s string) (map[string]core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("--debts is required")
	}
	debts := make(map[string]core.Money)
	for _, pair := range strings.Split(s, ",") {
		memberID, amount, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid debt entry %q, want member=amount", pair)
		}
		debts[strings.TrimSpace(memberID)] = core.ParseAmount(amount)
	}
	return debts, nil
}

func decodeRentPayload(r io.Reader) (core.RentRecord, error) {
	var payload core.RentRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return core.RentRecord{}, fmt.Errorf("decode rent payload: %w", err)
	}
	return payload, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
