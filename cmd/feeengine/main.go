package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/flowglad/flowglad-sub009/internal/clock"
	"github.com/flowglad/flowglad-sub009/internal/config"
	"github.com/flowglad/flowglad-sub009/internal/migration"
	"github.com/flowglad/flowglad-sub009/internal/observability"
	"github.com/flowglad/flowglad-sub009/internal/server"
	"github.com/flowglad/flowglad-sub009/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Fee engine domains and the internal HTTP API
		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the id generator. SNOWFLAKE_NODE must differ per
// replica.
func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			panic(err)
		}
		nodeID = parsed
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
