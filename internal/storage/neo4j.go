package storage

import (
	"context"
	"time"

	"github.com/OFFIS-RIT/graphvis/internal/util"
	"github.com/OFFIS-RIT/graphvis/pkg/graphdb"
)

// NewNeo4jDriver connects to the graph database configured by the NEO4J_*
// environment variables.
func NewNeo4jDriver(ctx context.Context) (*graphdb.Neo4jDriver, error) {
	return graphdb.NewNeo4jDriver(ctx, graphdb.Neo4jConfig{
		URI:                   util.GetEnvString("NEO4J_URI", "neo4j://localhost:7687"),
		Username:              util.GetEnvString("NEO4J_USERNAME", "neo4j"),
		Password:              util.GetEnv("NEO4J_PASSWORD"),
		MaxConnectionPoolSize: int(util.GetEnvNumeric("NEO4J_MAX_POOL", 50)),
		ConnectionTimeout:     util.GetEnvDuration("NEO4J_CONNECTION_TIMEOUT", 30*time.Second),
		ConnectRetries:        int(util.GetEnvNumeric("NEO4J_CONNECT_RETRIES", 5)),
	})
}
