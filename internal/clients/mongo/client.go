package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"inkpad/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNotInitialized is returned by Shutdown when Init never produced a client.
var ErrNotInitialized = errors.New("mongo client was never initialized")

// ErrShutdown is returned by Shutdown after the first call already ran.
var ErrShutdown = errors.New("mongo client already shut down")

var (
	client  *mongo.Client
	db      *mongo.Database
	initErr error

	mu           sync.Mutex
	initOnce     sync.Once
	shutdownOnce sync.Once

	drv driver = mongoDriver{}
)

// Init initializes the MongoDB connection (first call wins, thread-safe).
// Subsequent calls return the cached client, database, and error.
func Init(ctx context.Context, cfg config.Config, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	initOnce.Do(func() {
		opts := options.Client().
			ApplyURI(cfg.MongoURI).
			SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
			SetConnectTimeout(10 * time.Second).
			SetAppName("inkpad")

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cli, err := drv.Connect(ctx, opts)
		if err != nil {
			log.Error("failed to connect to mongo", "err", err)
			setState(nil, nil, err)
			return
		}

		if err := drv.Ping(ctx, cli); err != nil {
			log.Error("failed to ping mongo", "err", err)
			_ = drv.Disconnect(ctx, cli)
			setState(nil, nil, err)
			return
		}

		setState(cli, cli.Database(cfg.MongoDBName), nil)
		log.Info("successfully connected to mongo", "db", cfg.MongoDBName)
	})

	mu.Lock()
	defer mu.Unlock()
	return client, db, initErr
}

// Client returns the singleton MongoDB client instance.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// DB returns the singleton MongoDB database instance.
func DB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// Shutdown disconnects the client. Only the first call does work; it
// returns ErrNotInitialized when there was never a client to close, and
// every later call returns ErrShutdown.
func Shutdown(ctx context.Context) error {
	var err error
	ran := false

	shutdownOnce.Do(func() {
		ran = true

		mu.Lock()
		defer mu.Unlock()

		if client == nil {
			err = ErrNotInitialized
			return
		}

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err = drv.Disconnect(ctx, client)
		client = nil
		db = nil
		initErr = nil
	})

	if !ran {
		return ErrShutdown
	}
	return err
}

func setState(cli *mongo.Client, database *mongo.Database, err error) {
	mu.Lock()
	defer mu.Unlock()
	client = cli
	db = database
	initErr = err
}
