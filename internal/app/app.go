package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"club-site/handler"
	"club-site/internal/catalog"
	"club-site/internal/integrations/paramstore"
	"club-site/internal/repository"
	"club-site/internal/usecase"
)

// Deps are the external collaborators Build wires together.
type Deps struct {
	Store   usecase.Store
	Params  usecase.ParamGetter
	Catalog catalog.Catalog
}

// Build assembles the services and the HTTP handler.
func Build(cfg Config, d Deps) (*handler.Handler, error) {
	if d.Store == nil {
		return nil, errors.New("app: store must not be nil")
	}
	if d.Params == nil {
		return nil, errors.New("app: parameter store must not be nil")
	}

	subs, err := usecase.NewSubmissionService(d.Store)
	if err != nil {
		return nil, err
	}
	cat, err := usecase.NewCatalogService(d.Store, d.Catalog)
	if err != nil {
		return nil, err
	}
	admin, err := usecase.NewAdminService(d.Params, cfg.ParamPrefix, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return handler.NewHandler(subs, cat, admin, handler.WithPathPrefix(cfg.PathPrefix))
}

// New connects to AWS (and Redis when selected) and returns the handler
// plus a cleanup func for the opened clients.
func New(ctx context.Context, cfg Config) (*handler.Handler, func() error, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("app: load AWS config: %w", err)
	}

	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Default()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() error { return nil }
	var store usecase.Store
	switch cfg.StoreBackend {
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cleanup = client.Close
		if store, err = repository.NewRedisStore(client); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
	default:
		if store, err = repository.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), cfg.KVTable); err != nil {
			return nil, nil, err
		}
	}

	h, err := Build(cfg, Deps{Store: store, Params: params, Catalog: cat})
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return h, cleanup, nil
}
