package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/lineaapp/linea/internal/config"
	"github.com/lineaapp/linea/internal/db"
)

// openDB connects with the server's configuration.
func openDB() (*config.Config, *sqlx.DB, error) {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, conn, nil
}
