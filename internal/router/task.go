package router

import (
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/dig"

	"github.com/semweave/semweave/internal/application/service"
)

// AsynqTaskParams collects the task server's dependencies.
type AsynqTaskParams struct {
	dig.In

	Server            *asynq.Server
	ExtractionService *service.ExtractionService
}

func getAsynqRedisClientOpt() *asynq.RedisClientOpt {
	return &asynq.RedisClientOpt{
		Addr:         os.Getenv("REDIS_ADDR"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
		DB:           0,
	}
}

// NewAsynqClient creates the task queue client.
func NewAsynqClient() *asynq.Client {
	return asynq.NewClient(getAsynqRedisClientOpt())
}

// NewAsynqServer creates the task queue server.
func NewAsynqServer() *asynq.Server {
	return asynq.NewServer(
		getAsynqRedisClientOpt(),
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)
}

// StartAsynqServer registers the handlers and runs the task server in the
// background.
func StartAsynqServer(params AsynqTaskParams) {
	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TypeDocumentExtraction, params.ExtractionService.HandleTask)
	go func() {
		if err := params.Server.Run(mux); err != nil {
			log.Printf("asynq server stopped: %v", err)
		}
	}()
}
