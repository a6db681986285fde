// Package main provides the Cadenza API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cadenza-io/cadenza/pkg/audit"
	"github.com/cadenza-io/cadenza/pkg/config"
	"github.com/cadenza-io/cadenza/pkg/dispatch"
	"github.com/cadenza-io/cadenza/pkg/eventbus"
	"github.com/cadenza-io/cadenza/pkg/persistence"
	"github.com/cadenza-io/cadenza/pkg/queues"
	"github.com/cadenza-io/cadenza/pkg/support"
	"github.com/cadenza-io/cadenza/pkg/web"
	"github.com/cadenza-io/cadenza/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	publisher   message.Publisher
	redisClient redis.UniversalClient
	config      config.Config
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	publisher message.Publisher,
	redisClient redis.UniversalClient,
	cfg config.Config,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		publisher:   publisher,
		redisClient: redisClient,
		config:      cfg,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	auditor := audit.NewService(a.persistence)
	tickets := support.NewService(a.eventBus)
	notifications := queues.NewWatermillNotificationProducer(a.publisher)

	var mediaJobs queues.MediaJobProducer
	if a.redisClient != nil {
		mediaJobs = queues.NewRedisMediaJobProducer(a.redisClient)
	} else {
		mediaJobs = queues.NewWatermillMediaJobProducer(a.publisher)
	}

	dispatcher := dispatch.NewDispatcher(
		notifications, mediaJobs, tickets, auditor, a.config.Dispatch, a.logger)

	workflowService := workflow.NewService(a.persistence, auditor, a.eventBus, a.logger)
	publishingService := workflow.NewPublishingService(a.persistence, auditor, a.eventBus, a.logger)
	coordinator := workflow.NewCoordinator(a.persistence, dispatcher, a.eventBus, a.logger, a.tracer)
	simulator := workflow.NewSimulator(a.persistence, a.logger)

	handlers := web.NewAPIHandlers(workflowService, publishingService, coordinator, simulator, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Cadenza API")
	})

	w := app.Group("/workflows")
	w.Get("/builder-schema", handlers.GetBuilderSchema)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/validate", handlers.ValidateWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Post("/:id/pause", handlers.PauseWorkflow)
	w.Post("/:id/dry-run", handlers.DryRunWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	app.Post("/events", handlers.IngestEvent)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
