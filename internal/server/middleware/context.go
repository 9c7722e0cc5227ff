package middleware

import (
	"github.com/strategraph/backend/internal/util"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/strategraph/backend/pkg/ai"
	oai "github.com/strategraph/backend/pkg/ai/ollama"
	gai "github.com/strategraph/backend/pkg/ai/openai"
	"github.com/strategraph/backend/pkg/logger"
	"github.com/strategraph/backend/pkg/store"
	storepgx "github.com/strategraph/backend/pkg/store/pgx"
)

type App struct {
	DBConn   *pgxpool.Pool
	Queue    *amqp091.Channel
	S3       *s3.Client
	AiClient ai.GraphAIClient
	Store    store.GraphStorage
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(
	db *pgxpool.Pool,
	queue *amqp091.Channel,
	s3 *s3.Client,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			adapter := util.GetEnv("AI_ADAPTER")
			var aiClient ai.GraphAIClient

			switch adapter {
			case "ollama":
				client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
					ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

					BaseURL: util.GetEnv("AI_CHAT_URL"),
					ApiKey:  util.GetEnv("AI_CHAT_KEY"),

					MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
				if err != nil {
					logger.Fatal("Failed to create Ollama client", "err", err)
				}
				aiClient = client
			default:
				aiClient = gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
					ChatModel:      util.GetEnv("AI_CHAT_MODEL"),
					EmbeddingModel: util.GetEnv("AI_EMBED_MODEL"),

					ChatURL:      util.GetEnv("AI_CHAT_URL"),
					ChatKey:      util.GetEnv("AI_CHAT_KEY"),
					EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
					EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),

					MaxParallelEmbeds: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
				})
			}

			app := &App{
				DBConn:   db,
				Queue:    queue,
				S3:       s3,
				AiClient: aiClient,
				Store:    storepgx.NewGraphDBStorageWithConnection(db, aiClient),
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
