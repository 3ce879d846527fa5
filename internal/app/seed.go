package app

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"storyverse/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var (
		count       int
		catalogPath string
		writePath   string
		upload      bool
		randSeed    uint64
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the catalog with starter titles",
		Long: `seed inserts a starter catalog. Titles come from --catalog when given,
otherwise they are generated. Books already present are left alone.`,
		Example: `  storyverse seed
  storyverse seed --count 50 --write-catalog catalog.yaml
  storyverse seed --catalog catalog.yaml --upload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg.Log.Level)

			var entries []seed.Entry
			if catalogPath != "" {
				entries, err = seed.Load(catalogPath)
				if err != nil {
					return err
				}
			} else {
				if randSeed == 0 {
					randSeed = uint64(time.Now().UnixNano())
				}
				entries = seed.Generate(count, rand.New(rand.NewPCG(randSeed, randSeed>>1)))
			}
			if writePath != "" {
				if err := seed.Save(writePath, entries); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d titles to %s\n", len(entries), writePath)
			}

			r, err := openRepos(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer r.Close()

			opts := seed.Options{Concurrency: concurrency, Logger: logger}
			if upload {
				store, err := buildStorage(ctx, cfg, logger)
				if err != nil {
					return fmt.Errorf("setup storage: %w", err)
				}
				if store == nil {
					return fmt.Errorf("--upload needs storage.bucket to be configured")
				}
				opts.Store = store
			}

			res, err := seed.NewSeeder(r.books, opts).Run(ctx, entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d inserted, %d skipped, %d uploaded\n",
				color.GreenString("seeded:"), res.Inserted, res.Skipped, res.Uploaded)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", seed.DefaultCount, "Number of titles to generate")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Load titles from a catalog YAML file")
	cmd.Flags().StringVar(&writePath, "write-catalog", "", "Write the titles to a catalog YAML file")
	cmd.Flags().BoolVar(&upload, "upload", false, "Upload book content to object storage")
	cmd.Flags().Uint64Var(&randSeed, "seed", 0, "Random seed for generated titles")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel uploads")
	return cmd
}
