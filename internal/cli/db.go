package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/TwigBush/restodir/internal/store"
)

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log, cmd.ErrOrStderr())
	st, err := store.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.AutoMigrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func cmdMigrate() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			slog.Info("migrated")
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func cmdSeed() *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "seed",
		Short: "Load tags and blog posts from a YAML fixtures file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			fx, err := store.LoadFixtures(f)
			if err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Seed(cmd.Context(), fx); err != nil {
				return err
			}
			slog.Info("seeded", "tags", len(fx.Tags), "posts", len(fx.Posts))
			return printOut(cmd.OutOrStdout(), map[string]int{"tags": len(fx.Tags), "posts": len(fx.Posts)})
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "fixtures/seed.yaml", "fixtures file")
	return c
}
