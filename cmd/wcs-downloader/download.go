package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wcs-downloader/internal/download"
	"github.com/mohammed-shakir/wcs-downloader/internal/events"
	h3mapper "github.com/mohammed-shakir/wcs-downloader/internal/mapper/h3"
)

func newDownloadCmd(a *app) *cobra.Command {
	var f commonFlags
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download every advertised coverage as <id>.tif",
		Long: `Download fetches each coverage with GetCoverage, one request at a time,
pausing between requests. Files already present in the output directory
are skipped without a request.`,
		Args: urlArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rules, err := a.rules(cmd, f)
			if err != nil {
				return err
			}

			covs, exec, err := a.loadCoverages(ctx, args[0])
			if err != nil {
				return err
			}

			pub := a.publisher()
			defer func() {
				if err := pub.Close(); err != nil {
					a.log.WarnContext(ctx, "event publisher close failed", "err", err)
				}
			}()

			d := download.New(exec, a.log, download.Options{
				OutputDir: a.outputPath(cmd, f),
				Rules:     rules,
				Delay:     a.cfg.RequestDelay.Duration,
				Publisher: pub,
				Mapper:    h3mapper.New(),
				H3Res:     a.cfg.Events.H3Res,
			})
			sum, err := d.Run(ctx, covs)
			a.log.InfoContext(ctx, "download finished",
				"total", sum.Total,
				"downloaded", sum.Downloaded,
				"skipped", sum.Skipped,
				"bytes", sum.Bytes)
			return err
		},
	}
	addCommonFlags(cmd, &f)
	return cmd
}

func (a *app) publisher() events.Publisher {
	brokers := a.cfg.KafkaBrokers()
	if len(brokers) == 0 {
		return events.Nop{}
	}
	k, err := events.NewKafka(brokers, a.cfg.Events.Topic)
	if err != nil {
		a.log.Warn("coverage events disabled", "brokers", brokers, "err", err)
		return events.Nop{}
	}
	return k
}
