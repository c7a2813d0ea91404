package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/broadcast"
	"github.com/taskshare/taskshare/internal/services"
)

type Handler interface {
	HandleRegister(c *gin.Context)
	HandleLogin(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleGetTasks(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleAddCollaborator(c *gin.Context)
	HandleRemoveCollaborator(c *gin.Context)

	HandleSearchUsers(c *gin.Context)
	HandleUpdateProfile(c *gin.Context)

	HandleEventStream(c *gin.Context)
}

type handlerImpl struct {
	logger      zerolog.Logger
	auth        services.AuthService
	principals  services.PrincipalService
	tasks       services.TaskService
	broadcaster *broadcast.Broadcaster
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	principalService services.PrincipalService,
	taskService services.TaskService,
	broadcaster *broadcast.Broadcaster,
) Handler {
	return &handlerImpl{
		logger:      logger,
		auth:        authService,
		principals:  principalService,
		tasks:       taskService,
		broadcaster: broadcaster,
	}
}
