package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries every external credential and knob the provisioner needs:
// the local store, the Data Warehouse, both Canvas instances and the
// operational service account that owns auto-generated requests.
type Config struct {
	DatabaseDSN string
	Environment string

	WarehouseUser     string
	WarehousePassword string
	WarehouseService  string

	CanvasProdURL string
	CanvasProdKey string
	CanvasTestURL string
	CanvasTestKey string
	CanvasDebug   bool

	ServiceAccount string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DatabaseDSN: os.Getenv("DB_DSN"),
		Environment: os.Getenv("ENV"),

		WarehouseUser:     os.Getenv("DATA_WAREHOUSE_USER"),
		WarehousePassword: os.Getenv("DATA_WAREHOUSE_PASSWORD"),
		WarehouseService:  os.Getenv("DATA_WAREHOUSE_SERVICE"),

		CanvasProdURL: os.Getenv("CANVAS_PROD_URL"),
		CanvasProdKey: os.Getenv("CANVAS_PROD_KEY"),
		CanvasTestURL: os.Getenv("CANVAS_TEST_URL"),
		CanvasTestKey: os.Getenv("CANVAS_TEST_KEY"),
		CanvasDebug:   os.Getenv("CANVAS_DEBUG") == "true",

		ServiceAccount: os.Getenv("SERVICE_ACCOUNT"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.WarehouseService == "" {
		return nil, fmt.Errorf("DATA_WAREHOUSE_SERVICE is required but not set")
	}

	return cfg, nil
}

// CanvasURL returns the test instance URL when the debug flag is set.
func (c *Config) CanvasURL() string {
	if c.CanvasDebug {
		return c.CanvasTestURL
	}
	return c.CanvasProdURL
}

// CanvasKey returns the test instance token when the debug flag is set.
func (c *Config) CanvasKey() string {
	if c.CanvasDebug {
		return c.CanvasTestKey
	}
	return c.CanvasProdKey
}
