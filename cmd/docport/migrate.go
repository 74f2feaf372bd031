package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/data"
	"github.com/ncobase/docport/export/repository"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Init(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := context.Background()
			dataLayer, err := data.New(ctx, cfg.Data)
			if err != nil {
				return fmt.Errorf("failed to connect database: %w", err)
			}
			defer dataLayer.Close()

			if err := data.Migrate(ctx, dataLayer.DB(), repository.Migrations); err != nil {
				return err
			}

			fmt.Println("migrations applied")
			return nil
		},
	}
}
