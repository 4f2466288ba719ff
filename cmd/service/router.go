package service

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quka-ai/livetable/app/core"
	"github.com/quka-ai/livetable/app/response"
	"github.com/quka-ai/livetable/cmd/service/handler"
	"github.com/quka-ai/livetable/cmd/service/middleware"
	"github.com/quka-ai/livetable/pkg/metrics"
)

func serve(core *core.Core) *http.Server {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	return &http.Server{
		Addr:    core.Cfg().Addr,
		Handler: core.HttpEngine(),
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	s.Engine.Use(gin.Recovery())
	s.Engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.SetAppid(), middleware.Metrics(s.Core))
	apiV1 := s.Engine.Group("/api/v1")
	{
		apiV1.Use(middleware.AcceptLanguage(), middleware.Identity(s.Core))
		apiV1.GET("/connect", handler.Websocket(s.Core))

		apiV1.POST("/table", s.CreateTable)
		apiV1.GET("/tables", s.ListTables)

		table := apiV1.Group("/table/:tableid")
		{
			table.GET("", s.GetTable)
			table.PUT("", s.ReplaceTable)
			table.DELETE("", s.DeleteTable)
			table.PUT("/meta", s.UpdateTableMeta)

			table.POST("/column", s.AddColumn)
			table.PUT("/column/:columnid", s.UpdateColumn)
			table.DELETE("/column/:columnid", s.DeleteColumn)

			table.GET("/users", s.ListActiveUsers)
			table.DELETE("/users/me", s.LeaveTable)
		}
	}
}
