// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/redis/rueidis"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank; the stats cache is then off.
	Redis rueidis.Client

	// services is allocated by ConnectDB, filled in by Startup and torn
	// down by Shutdown. WAFFLE passes DBDeps by value, so it is a pointer.
	services *services
}
