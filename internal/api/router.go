package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	v1 "github.com/vendaflow/vendaflow/internal/api/v1"
	"github.com/vendaflow/vendaflow/internal/rest/middleware"
)

type Handlers struct {
	Registration *v1.RegistrationHandler
	Webhook      *v1.WebhookHandler
	Health       *v1.HealthHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(),
	)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", handlers.Health.Health)

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Registration routes
	registrations := router.Group("/registrations")
	{
		registrations.POST("", handlers.Registration.ProcessRegistration)
	}

	// Webhook routes
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/gateway", handlers.Webhook.HandleGatewayEvent)
		webhooks.GET("/gateway", handlers.Webhook.Liveness)
	}
}
