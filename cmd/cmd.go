package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	cfgPkg "github.com/xhad/newsflow/pkg/config"
	"github.com/xhad/newsflow/pkg/pipeline"
)

type Flags struct {
	ConfigPath string
	Market     string
	Batch      int
	BatchSize  int
	File       string
	Table      string
	Cleanup    bool
	ExportCSV  bool
	LogLevel   string
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.Market, "market", "", "Market to process (idx or sgx)")
	flag.IntVar(&flags.Batch, "batch", 1, "1-based batch number; batch 1 refreshes the work-list")
	flag.IntVar(&flags.BatchSize, "batch-size", 0, "Articles per batch")
	flag.StringVar(&flags.File, "file", "", "Run file name under the data directory, without .json")
	flag.StringVar(&flags.Table, "table", "", "Target table name")
	flag.BoolVar(&flags.Cleanup, "cleanup", false, "Archive and delete outdated articles instead of processing")
	flag.BoolVar(&flags.ExportCSV, "export-csv", false, "Also write accepted articles to a CSV file")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	return flags
}

// apply overrides config values with the flags that were set.
func (f Flags) apply(cfg *cfgPkg.Config) {
	if f.Market != "" && f.Market != cfg.Pipeline.Market {
		cfg.Pipeline.Market = f.Market
		if f.Table == "" {
			cfg.Pipeline.Table = f.Market + "_news"
		}
	}
	if f.Table != "" {
		cfg.Pipeline.Table = f.Table
	}
	if f.File != "" {
		cfg.Pipeline.File = f.File
	}
	if f.BatchSize > 0 {
		cfg.Pipeline.BatchSize = f.BatchSize
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("articles"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSummary(s pipeline.Summary) {
	fmt.Println()
	color.Cyan("Batch %d finished in %s (run %s)\n", s.Batch, s.Elapsed.Round(time.Millisecond), s.RunID)
	fmt.Printf("  Items:            %d\n", s.Items)
	color.Green("  Accepted:         %d\n", s.Succeeded)
	color.Yellow("  Skipped by score: %d\n", s.SkippedByScore)
	if s.Failed > 0 {
		color.Red("  Failed:           %d\n", s.Failed)
	} else {
		fmt.Printf("  Failed:           %d\n", s.Failed)
	}
	fmt.Printf("  Submitted:        %d\n", s.Submitted)
	if s.ChunkFailures > 0 {
		color.Red("  Failed chunks:    %d\n", s.ChunkFailures)
	}
}
