package http

import (
	"github.com/nats-io/nats.go"

	natsadapter "github.com/partymap/partymap/internal/adapters/nats"
	"github.com/partymap/partymap/internal/adapters/postgres"
	"github.com/partymap/partymap/internal/adapters/valkey"
	"github.com/partymap/partymap/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. Every field
// except Polygons and Markers may be nil when the backing service is not
// configured.
type Dependencies struct {
	Polygons *usecases.PolygonService
	Markers  *usecases.MarkerService
	Events   *natsadapter.Subscriber
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
