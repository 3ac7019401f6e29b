package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
	"github.com/mohammed-shakir/wcs-downloader/internal/tilestache"
)

func newTileStacheCmd(a *app) *cobra.Command {
	var (
		f          commonFlags
		configPath string
		maskband   int
	)
	cmd := &cobra.Command{
		Use:   "tilestache <url>",
		Short: "Write a TileStache config for the advertised coverages",
		Args:  urlArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rules, err := a.rules(cmd, f)
			if err != nil {
				return err
			}
			outDir := a.outputPath(cmd, f)
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return wcserr.Wrapf(wcserr.ErrFilesystem, err, "create output directory")
			}

			covs, _, err := a.loadCoverages(ctx, args[0])
			if err != nil {
				return err
			}

			mb := a.cfg.Maskband
			if cmd.Flags().Changed("maskband") {
				mb = &maskband
			}
			tc, err := tilestache.Build(covs, tilestache.Options{
				OutputDir:     outDir,
				Rules:         rules,
				Maskband:      mb,
				CacheName:     a.cfg.CacheName,
				ProviderClass: a.cfg.ProviderClass,
				Logger:        a.log,
			})
			if err != nil {
				return err
			}

			path := a.cfg.ConfigPath
			if cmd.Flags().Changed("config-path") {
				path = configPath
			}
			if err := tilestache.Write(path, tc); err != nil {
				return err
			}
			a.log.InfoContext(ctx, "tile config written", "path", path, "layers", len(tc.Layers))
			return nil
		},
	}
	addCommonFlags(cmd, &f)
	cmd.Flags().StringVarP(&configPath, "config-path", "c", "config.json", "where to write the TileStache config")
	cmd.Flags().IntVar(&maskband, "maskband", 0, "maskband added to every layer's provider kwargs")
	return cmd
}
