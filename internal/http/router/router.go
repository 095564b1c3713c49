package router

import (
	"github.com/gin-gonic/gin"

	"openswe.dev/manager/internal/http/handler"
	"openswe.dev/manager/internal/http/handler/webhook"
	"openswe.dev/manager/internal/service"
	"openswe.dev/manager/internal/store"
)

type RouterConfig struct {
	LinearWebhookSecret string
	GitHubWebhookSecret string
}

func SetupRoutes(router *gin.Engine, ingest service.IssueIngestService, runs store.RunStore, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	webhooks := router.Group("/webhooks")
	{
		linearHandler := webhook.NewLinearWebhookHandler(ingest, cfg.LinearWebhookSecret)
		webhooks.POST("/linear", linearHandler.HandleEvent)

		githubHandler := webhook.NewGitHubWebhookHandler(ingest, cfg.GitHubWebhookSecret)
		webhooks.POST("/github", githubHandler.HandleEvent)
	}

	v1 := router.Group("/api/v1")
	{
		runHandler := handler.NewRunHandler(runs)
		v1.GET("/runs/:run_id", runHandler.GetRun)
		v1.GET("/runs", runHandler.ListRunsByIssue)
	}
}
