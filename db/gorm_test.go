package db

import (
	"testing"

	"listenboard/config"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser:     "listen",
		DBPassword: "p@ss",
		DBHost:     "db.local",
		DBPort:     "3307",
		DBName:     "listenboard",
	}

	dsn := DSN(cfg)
	assert.Contains(t, dsn, "listen:p@ss@tcp(db.local:3307)/listenboard?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestAutoMigrateWithoutConnection(t *testing.T) {
	GormDB = nil
	assert.Error(t, AutoMigrateModels())
	assert.NoError(t, CloseGormDB())
}
