package main

import (
	"github.com/angelmondragon/elibrary-backend/internal/bootstrap"
	"github.com/angelmondragon/elibrary-backend/internal/seed"
)

func main() {
	proc := bootstrap.Start("seed")
	ctx, stop := proc.SignalContext()
	defer stop()

	dbClient := proc.Database(ctx)
	res, err := seed.Run(ctx, dbClient, proc.Config.Password)
	proc.Must(ctx, "seed", err)

	proc.Logger.Info(proc.Logger.WithFields(ctx, map[string]any{
		"admin_id":         res.AdminID,
		"admin_replaced":   res.AdminReplaced,
		"categories_added": res.CategoriesAdded,
	}), "seed complete")
	proc.Must(ctx, "close resources", proc.Close())
}
