package records

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AltairaLabs/PromptFlow/pkg/config"
	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
)

// Open builds the Store selected by cfg.Driver. table overrides cfg.Table
// when non-empty, so a table name read from the stack outputs wins over the
// configured one. The redis backend implements io.Closer.
func Open(cfg config.StoreConfig, dynamo DynamoDBAPI, table string) (Store, error) {
	switch cfg.Driver {
	case config.StoreDriverDynamoDB, "":
		if table == "" {
			table = cfg.Table
		}
		if table == "" {
			return nil, pkgerrors.New(pkgerrors.ComponentConfig, "OpenStore", fmt.Errorf("dynamodb store needs a table name"))
		}
		if dynamo == nil {
			return nil, pkgerrors.New(pkgerrors.ComponentConfig, "OpenStore", fmt.Errorf("dynamodb store needs a client"))
		}
		return NewDynamoDBStore(dynamo, table), nil
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts := []RedisOption{WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, WithPrefix(cfg.Redis.Prefix))
		}
		return NewRedisStore(client, opts...), nil
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, pkgerrors.New(pkgerrors.ComponentConfig, "OpenStore", fmt.Errorf("unknown store driver %q", cfg.Driver))
	}
}
