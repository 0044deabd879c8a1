package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-core/pkg/marketdata"
	"github.com/rxtech-lab/argo-core/pkg/marketdata/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical bars into the parquet store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "ticker",
				Aliases:  []string{"t"},
				Usage:    "Ticker symbol",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format (exclusive). Defaults to today.",
				Value:   time.Now().UTC().Truncate(24 * time.Hour),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider (%s, %s or %s)", marketdata.ProviderPolygon, marketdata.ProviderBinance, marketdata.ProviderAlpaca),
				Value:   string(marketdata.ProviderPolygon),
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval",
				Value:   string(marketdata.TimespanOneHour),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Output directory, defaults to data.dir",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dataPath := cmd.String("data")
	if dataPath == "" {
		dataPath = cfg.Data.Dir
	}

	timespan, err := marketdata.ParseTimespan(cmd.String("interval"))
	if err != nil {
		return err
	}

	providerType := marketdata.ProviderType(cmd.String("provider"))

	downloader, err := provider.NewDownloader(providerType, cfg.Venues.Credentials())
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(errWriter(cmd)),
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s from %s", cmd.String("ticker"), providerType)),
		progressbar.OptionClearOnFinish(),
	)

	onProgress := marketdata.OnDownloadProgress(func(current float64, total float64, message string) {
		if total <= 0 {
			return
		}

		bar.Describe(message)
		_ = bar.Set(int(min(100, current/total*100)))
	})

	client, err := marketdata.NewClient(marketdata.ClientConfig{DataPath: dataPath}, downloader, onProgress)
	if err != nil {
		return err
	}

	path, err := client.Download(ctx, marketdata.DownloadParams{
		Ticker:   cmd.String("ticker"),
		Start:    cmd.Timestamp("start"),
		End:      cmd.Timestamp("end"),
		Timespan: timespan,
	})
	_ = bar.Finish()

	if err != nil {
		return err
	}

	fmt.Fprintf(outWriter(cmd), "Downloaded %s\n", path)

	return nil
}
