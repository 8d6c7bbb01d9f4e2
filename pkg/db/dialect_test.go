package db

import (
	"testing"

	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectSelectsDriver(t *testing.T) {
	cases := map[string]string{
		"":           "postgres",
		"PostgreSQL": "postgres",
		"mysql":      "mysql",
		"sqlite":     "sqlite",
	}
	for dbType, want := range cases {
		dialector, err := Dialect(config.Config{DBType: dbType, DBName: "fees.db"})
		require.NoError(t, err, dbType)
		assert.Equal(t, want, dialector.Name(), dbType)
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestDSNs(t *testing.T) {
	cfg := config.Config{
		DBHost:     "db",
		DBPort:     "5432",
		DBName:     "fees",
		DBUser:     "app",
		DBPassword: "secret",
		DBSSLMode:  "disable",
	}
	assert.Equal(t, "host=db user=app password=secret dbname=fees port=5432 sslmode=disable TimeZone=UTC", postgresDSN(cfg))
	assert.Equal(t, "app:secret@tcp(db:5432)/fees?charset=utf8mb4&parseTime=True&loc=UTC", mysqlDSN(cfg))
	assert.Equal(t, defaultSQLiteFile, sqliteFile(config.Config{DBName: "postgres"}))
	assert.Equal(t, "local.db", sqliteFile(config.Config{DBName: "local.db"}))
}
