package app

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/vidcourse-backend/internal/clients/pipeline"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/platform/neo4jdb"
	"github.com/yungbote/vidcourse-backend/internal/realtime/bus"
	"github.com/yungbote/vidcourse-backend/internal/temporalx"
)

// Clients are the optional outbound connections. Every field may be nil.
type Clients struct {
	Bus      bus.Bus
	Neo4j    *neo4jdb.Client
	Pipeline pipeline.Client
	Temporal temporalsdkclient.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	b, err := bus.NewRedisBusFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis bus: %w", err)
	}
	out.Bus = b

	// Neo4j
	if out.Neo4j, err = neo4jdb.NewFromEnv(log); err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	// Pipeline
	if out.Pipeline, err = pipeline.NewFromEnv(log); err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init pipeline client: %w", err)
	}
	if out.Pipeline == nil {
		log.Warn("PIPELINE_URL not set; segments will fail until it is configured")
	}

	// Temporal
	if out.Temporal, err = temporalx.NewClient(log); err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Neo4j != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Neo4j.Close(ctx)
		cancel()
	}
}
