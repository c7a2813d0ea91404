package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/taskshare/taskshare/internal/broadcast"
	"github.com/taskshare/taskshare/internal/config"
	v1 "github.com/taskshare/taskshare/internal/delivery/http/v1"
	"github.com/taskshare/taskshare/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	cfg := config.Global()

	broadcaster := broadcast.New(globalLogger, cfg.Broadcast.BufferSize)
	authService := services.NewAuthService(
		globalLogger,
		globalStore,
		cfg.JWT.Issuer,
		[]byte(cfg.JWT.SigningKey),
		cfg.JWT.AccessTokenTTL,
	)
	principalService := services.NewPrincipalService(globalLogger, globalStore)
	taskService := services.NewTaskService(globalLogger, globalStore, broadcaster)

	v1Handler := v1.New(
		globalLogger,
		authService,
		principalService,
		taskService,
		broadcaster,
	)
	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/register", v1Handler.HandleRegister)
	authRouter.POST("/login", v1Handler.HandleLogin)

	taskRouter := router.Group("/tasks", v1Handler.HandleAuthMiddleware)
	taskRouter.GET("", v1Handler.HandleGetTasks)
	taskRouter.POST("", v1Handler.HandleCreateTask)
	taskRouter.PATCH("/:id", v1Handler.HandleUpdateTask)
	taskRouter.DELETE("/:id", v1Handler.HandleDeleteTask)
	taskRouter.POST("/:id/collaborators", v1Handler.HandleAddCollaborator)
	taskRouter.DELETE("/:id/collaborators/:userId", v1Handler.HandleRemoveCollaborator)

	userRouter := router.Group("/users", v1Handler.HandleAuthMiddleware)
	userRouter.GET("/search", v1Handler.HandleSearchUsers)
	userRouter.PATCH("/me", v1Handler.HandleUpdateProfile)

	router.GET("/events", v1Handler.HandleAuthMiddleware, v1Handler.HandleEventStream)
}
