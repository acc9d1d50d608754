package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/jobcatalog/internal/cli"
	"horse.fit/jobcatalog/internal/scheduler"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	spoolDir := fs.String("spool", "", "Spool directory (defaults to SPOOL_DIR)")
	site := fs.String("site", "", "Process only this source")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, code := loadRuntime(envLoader)
	if code != 0 {
		return code
	}
	dir := strings.TrimSpace(*spoolDir)
	if dir == "" {
		dir = cfg.SpoolDir
	}

	pool, err := connectDatabase(cfg, logger, 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := signalContext()
	defer cancel()

	svcs, err := newServices(ctx, cfg, pool, logger, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize cycle: %v\n", err)
		return 1
	}
	defer svcs.Close()

	report, err := svcs.cycle.Run(ctx, *site)
	for _, run := range report.Runs {
		printRun(run, false)
	}
	var swept int64
	for _, n := range report.Swept {
		swept += n
	}
	fmt.Printf("cycle id=%s runs=%d deactivated=%d\n", report.CycleID, len(report.Runs), swept)

	if err != nil {
		if scheduler.IsBusy(err) {
			fmt.Fprintln(os.Stderr, "Another cycle is running; try again later")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Cycle failed: %v\n", err)
		return 1
	}
	return 0
}
