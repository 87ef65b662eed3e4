// Package container wires every service, repository and handler through the
// dig dependency injection container.
package container

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/neo4j/neo4j-go-driver/v6/neo4j"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	claimsRepo "github.com/semweave/semweave/internal/application/repository/claims"
	"github.com/semweave/semweave/internal/application/repository/classindex"
	graphRepo "github.com/semweave/semweave/internal/application/repository/graph"
	blobstorage "github.com/semweave/semweave/internal/application/repository/storage"
	"github.com/semweave/semweave/internal/application/service"
	"github.com/semweave/semweave/internal/application/service/extraction"
	"github.com/semweave/semweave/internal/application/service/shacl"
	"github.com/semweave/semweave/internal/common"
	"github.com/semweave/semweave/internal/config"
	"github.com/semweave/semweave/internal/handler"
	"github.com/semweave/semweave/internal/logger"
	"github.com/semweave/semweave/internal/models/chat"
	"github.com/semweave/semweave/internal/models/embedding"
	"github.com/semweave/semweave/internal/models/llm"
	"github.com/semweave/semweave/internal/ontology"
	"github.com/semweave/semweave/internal/router"
	"github.com/semweave/semweave/internal/stream"
	"github.com/semweave/semweave/internal/tracing"
	"github.com/semweave/semweave/internal/types/interfaces"
)

// BuildContainer registers every component of the application.
func BuildContainer(container *dig.Container) *dig.Container {
	must(container.Provide(NewResourceCleaner, dig.As(new(interfaces.ResourceCleaner))))

	// Core infrastructure
	must(container.Provide(config.LoadConfig))
	must(container.Provide(initTracer))
	must(container.Provide(initAntsPool))
	must(container.Invoke(registerPoolCleanup))
	must(container.Provide(common.NewSystemClock))

	// External collaborators
	must(container.Provide(initObjectStorage))
	must(container.Provide(initDatabase))
	must(container.Provide(initRedis))
	must(container.Provide(initNeo4jDriver))
	must(container.Provide(stream.NewCheckpointPublisher))
	must(container.Provide(router.NewAsynqClient))
	must(container.Provide(router.NewAsynqServer))

	// Models
	must(container.Provide(initChatModel))
	must(container.Provide(initEmbedder))
	must(container.Provide(embedding.NewBatchEmbedder))
	must(container.Provide(initGenerator))

	// Ontology
	must(container.Provide(ontology.NewStorage))
	must(container.Provide(initOntologyContext))

	// Repositories
	must(container.Provide(initClassIndex))
	must(container.Provide(initClaimRepository))
	must(container.Provide(initGraphSink))

	// Extraction pipeline
	must(container.Provide(extraction.NewChunker))
	must(container.Provide(extraction.NewMentionExtractor))
	must(container.Provide(extraction.NewClassRetriever))
	must(container.Provide(extraction.NewEntityExtractor))
	must(container.Provide(extraction.NewGrounder))
	must(container.Provide(extraction.NewRelationExtractor))
	must(container.Provide(extraction.NewMerger))
	must(container.Provide(extraction.NewDriver))
	must(container.Provide(extraction.NewWorkflow))
	must(container.Provide(extraction.NewClaimFactory))

	// Validation and correction
	must(container.Provide(shacl.NewGenerator))
	must(container.Provide(shacl.NewValidator))
	must(container.Provide(shacl.NewService))
	must(container.Provide(shacl.NewCorrector))
	must(container.Provide(shacl.NewLoop))

	// Run-level service
	must(container.Provide(service.NewExtractionService))
	must(container.Invoke(attachClaimExporter))

	// HTTP and task surface
	must(container.Provide(handler.NewExtractionHandler))
	must(container.Provide(handler.NewOntologyHandler))
	must(container.Provide(handler.NewSystemHandler))
	must(container.Provide(router.NewRouter))
	must(container.Invoke(router.StartAsynqServer))
	must(container.Invoke(indexOntologyClasses))

	return container
}

// must panics on registration errors; wiring must succeed.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

func initTracer() (*tracing.Tracer, error) {
	return tracing.InitTracer()
}

// initAntsPool creates the shared goroutine pool used by the streaming
// driver and the batch embedder.
func initAntsPool(cfg *config.Config) (*ants.Pool, error) {
	size := 64
	if cfg.Extraction != nil && cfg.Extraction.Concurrency > 0 {
		size = 4 * cfg.Extraction.Concurrency
	}
	return ants.NewPool(size, ants.WithNonblocking(false))
}

func registerPoolCleanup(pool *ants.Pool, cleaner interfaces.ResourceCleaner) {
	cleaner.RegisterWithName("AntsPool", func() error {
		pool.Release()
		return nil
	})
}

// initObjectStorage selects the blob storage backend.
func initObjectStorage(cfg *config.Config) (interfaces.ObjectStorage, error) {
	if cfg.Storage == nil {
		return blobstorage.NewLocalStorage("")
	}
	switch cfg.Storage.Driver {
	case "minio":
		return blobstorage.NewMinioStorage(context.Background(), blobstorage.MinioConfig{
			Endpoint:  cfg.Storage.Minio.Endpoint,
			AccessKey: cfg.Storage.Minio.AccessKey,
			SecretKey: cfg.Storage.Minio.SecretKey,
			Bucket:    cfg.Storage.Minio.Bucket,
			UseSSL:    cfg.Storage.Minio.UseSSL,
		})
	case "cos":
		return blobstorage.NewCosStorage(blobstorage.CosConfig{
			BucketURL: cfg.Storage.Cos.BucketURL,
			SecretID:  cfg.Storage.Cos.SecretID,
			SecretKey: cfg.Storage.Cos.SecretKey,
		})
	default:
		return blobstorage.NewLocalStorage(cfg.Storage.Local.BaseDir)
	}
}

// initDatabase opens the Postgres connection shared by the claim repository
// and the pgvector class index. Returns nil when no DSN is configured.
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	dsn := ""
	if cfg.Claims != nil && cfg.Claims.DSN != "" {
		dsn = cfg.Claims.DSN
	} else if cfg.VectorDatabase != nil && cfg.VectorDatabase.DSN != "" {
		dsn = cfg.VectorDatabase.DSN
	}
	if dsn == "" {
		return nil, nil
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	return db, nil
}

// initRedis connects the embedding cache. Returns nil when unconfigured.
func initRedis(cfg *config.Config) *redis.Client {
	if cfg.Redis == nil || cfg.Redis.Address == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// initNeo4jDriver connects the optional graph sink driver.
func initNeo4jDriver(cfg *config.Config, cleaner interfaces.ResourceCleaner) (neo4j.Driver, error) {
	if cfg.Neo4j == nil || !cfg.Neo4j.Enabled {
		return nil, nil
	}
	driver, err := neo4j.NewDriver(cfg.Neo4j.URI,
		neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
	if err != nil {
		return nil, err
	}
	cleaner.RegisterWithName("Neo4jDriver", func() error {
		return driver.Close(context.Background())
	})
	return driver, nil
}

func initChatModel(cfg *config.Config) (chat.Chat, error) {
	if cfg.Models == nil {
		return nil, fmt.Errorf("models configuration missing")
	}
	return chat.NewChat(&cfg.Models.Chat)
}

// initEmbedder builds the embedder, wrapping it with the Redis cache when a
// cache is configured.
func initEmbedder(cfg *config.Config, redisClient *redis.Client) (embedding.Embedder, error) {
	if cfg.Models == nil {
		return nil, fmt.Errorf("models configuration missing")
	}
	embedder, err := embedding.NewEmbedder(&cfg.Models.Embedding)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		ttl := 7 * 24 * time.Hour
		if cfg.Redis.TTL > 0 {
			ttl = cfg.Redis.TTL
		}
		embedder = embedding.NewCachedEmbedder(embedder, redisClient, "class-document", ttl)
	}
	return embedder, nil
}

func initGenerator(model chat.Chat, cfg *config.Config) *llm.Generator {
	return llm.NewGenerator(model, *cfg.Retry)
}

// initOntologyContext loads the configured ontology: from a local Turtle
// file when ontology.path is set, from blob storage otherwise.
func initOntologyContext(cfg *config.Config, storage *ontology.Storage) (*ontology.Context, error) {
	ctx := context.Background()
	if cfg.Ontology == nil {
		return nil, fmt.Errorf("ontology configuration missing")
	}
	if cfg.Ontology.Path != "" {
		data, err := os.ReadFile(cfg.Ontology.Path)
		if err != nil {
			return nil, fmt.Errorf("read ontology file: %w", err)
		}
		return ontology.Load(ctx, string(data))
	}
	ref := cfg.RunConfig().Ontology
	if ref.ContentHash == "" {
		return nil, fmt.Errorf("no ontology source configured: set ontology.path or ontology.content_hash")
	}
	return storage.Load(ctx, ref)
}

// initClassIndex selects the class index backend and attaches it to the
// ontology context as its vector search collaborator.
func initClassIndex(
	cfg *config.Config,
	db *gorm.DB,
	embedder embedding.Embedder,
	pooler embedding.Pooler,
	ont *ontology.Context,
) (interfaces.ClassIndex, error) {
	var index interfaces.ClassIndex
	driver := "memory"
	if cfg.VectorDatabase != nil && cfg.VectorDatabase.Driver != "" {
		driver = cfg.VectorDatabase.Driver
	}
	switch driver {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres class index requires vector_database.dsn")
		}
		pgIndex, err := classindex.NewPostgresIndex(db, embedder, pooler)
		if err != nil {
			return nil, err
		}
		index = pgIndex
	case "elasticsearch":
		client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
			Addresses: cfg.VectorDatabase.Elasticsearch.Addresses,
			Username:  cfg.VectorDatabase.Elasticsearch.Username,
			Password:  cfg.VectorDatabase.Elasticsearch.Password,
		})
		if err != nil {
			return nil, err
		}
		index = classindex.NewElasticsearchIndex(client, cfg.VectorDatabase.Elasticsearch.Index, embedder)
	default:
		index = classindex.NewMemoryIndex(embedder)
	}
	ont.SetVectorIndex(index)
	return index, nil
}

// indexOntologyClasses builds the class index from the loaded ontology's
// document forms at startup. Index trouble degrades hybrid search to
// lexical instead of failing boot.
func indexOntologyClasses(ont *ontology.Context, index interfaces.ClassIndex) {
	ctx := context.Background()
	docs := map[string]string{}
	classes := ont.Classes()
	for i := range classes {
		docs[classes[i].ID] = ontology.ClassDocument(&classes[i])
	}
	if err := index.IndexClasses(ctx, docs); err != nil {
		logger.Warnf(ctx, "class index build failed, hybrid search degrades to lexical: %v", err)
	}
}

// initClaimRepository creates the Postgres claim store when a database is
// configured.
func initClaimRepository(db *gorm.DB) (interfaces.ClaimRepository, error) {
	if db == nil {
		return nil, nil
	}
	return claimsRepo.NewRepository(db)
}

// initGraphSink creates the Neo4j sink; with a nil driver it no-ops.
func initGraphSink(driver neo4j.Driver) interfaces.GraphSink {
	return graphRepo.NewNeo4jSink(driver)
}

// attachClaimExporter wires the parquet exporter when an export directory is
// configured.
func attachClaimExporter(cfg *config.Config, svc *service.ExtractionService) error {
	if cfg.Claims == nil || cfg.Claims.ExportDir == "" {
		return nil
	}
	exporter, err := service.NewClaimExporter(cfg.Claims.ExportDir)
	if err != nil {
		return err
	}
	svc.SetClaimExporter(exporter)
	return nil
}
