package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/config"
	"projecthub/internal/api/handler"
	"projecthub/internal/api/middleware"
	"projecthub/internal/model"
	"projecthub/pkg/jwt"
	"projecthub/pkg/redis"
)

// 认证接口限流：每个 IP 每分钟 10 次
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时跳过 Token 黑名单与限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	const (
		admin     = model.RoleAdmin
		manager   = model.RoleManager
		developer = model.RoleDeveloper
	)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 项目动态 websocket（长连接不设请求超时） ──
	r.GET("/ws/projects/:id", middleware.JWTAuth(jwtMgr, blacklist), h.WS.Subscribe)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(limiter, authRateLimit, authRateWindow))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RoleAuth(admin), h.User.ListUsers)
				users.POST("/import", middleware.RoleAuth(admin), h.User.ImportUsers)
				users.GET("/:id", middleware.RoleAuth(admin, manager), h.User.GetUser)
				users.DELETE("/:id", middleware.RoleAuth(admin), h.User.DeleteUser)
			}

			// 管理员：经理与开发者指派
			adminGroup := authorized.Group("/admin")
			adminGroup.Use(middleware.RoleAuth(admin))
			{
				adminGroup.GET("/managers", h.User.ListManagers)
				adminGroup.GET("/developers", h.User.ListDevelopers)
				adminGroup.PUT("/projects/:id/manager", h.Team.AssignManager)
				adminGroup.DELETE("/projects/:id/manager/:manager_id", h.Team.DeassignManager)
				adminGroup.PUT("/projects/:id/developers", h.Team.AssignDeveloper)
				adminGroup.DELETE("/projects/:id/developers/:developer_id", h.Team.DeassignDeveloper)
			}

			// 项目模块
			projects := authorized.Group("/projects")
			{
				projects.GET("", h.Project.ListProjects)
				projects.POST("", middleware.RoleAuth(admin), h.Project.CreateProject)
				projects.GET("/:id", h.Project.GetProject)
				projects.PUT("/:id", middleware.RoleAuth(admin), h.Project.UpdateProject)
				projects.DELETE("/:id", middleware.RoleAuth(admin), h.Project.DeleteProject)
				projects.GET("/:id/developers", h.Project.GetDevelopers)
				projects.GET("/:id/modules", h.Module.ListByProject)
				projects.GET("/:id/tasks", h.Task.ListByProject)
				projects.GET("/:id/modules-statuses", h.Project.GetModulesAndStatuses)
				projects.GET("/:id/export", middleware.RoleAuth(admin, manager), h.Project.ExportTasks)
				projects.GET("/:id/calendar.ics", h.Project.Calendar)
				projects.GET("/:id/activity", middleware.RoleAuth(admin, manager), h.Notification.ProjectActivity)
			}

			// 经理视角
			managers := authorized.Group("/managers")
			managers.Use(middleware.RoleAuth(admin, manager))
			{
				managers.GET("/:id/projects", h.Project.ListByManager)
				managers.GET("/:id/developers", h.User.ListDevelopersByManager)
			}

			// 开发者视角
			developers := authorized.Group("/developers")
			{
				developers.GET("/:id/projects", h.Project.ListByDeveloper)
				developers.GET("/:id/projects/:project_id/tasks", h.Task.ListForDeveloper)
			}

			// 项目团队
			teams := authorized.Group("/project-team")
			{
				teams.GET("", h.Team.ListTeams)
				teams.POST("", middleware.RoleAuth(admin, manager), h.Team.CreateTeam)
				teams.GET("/:project_id", h.Team.GetTeam)
				teams.PATCH("/:project_id", middleware.RoleAuth(admin, manager), h.Team.UpdateTeam)
				teams.DELETE("/:project_id", middleware.RoleAuth(admin, manager), h.Team.DeleteTeam)
			}
			authorized.GET("/teams/:id/project", h.Team.GetTeamProject)

			// 模块
			modules := authorized.Group("/modules")
			{
				modules.POST("", middleware.RoleAuth(admin, manager), h.Module.CreateModule)
				modules.GET("/:id", h.Module.GetModule)
				modules.PUT("/:id", middleware.RoleAuth(admin, manager), h.Module.UpdateModule)
				modules.DELETE("/:id", middleware.RoleAuth(admin, manager), h.Module.DeleteModule)
			}

			// 任务状态字典
			statuses := authorized.Group("/status")
			{
				statuses.GET("", h.Status.ListStatuses)
				statuses.POST("", middleware.RoleAuth(admin), h.Status.CreateStatus)
				statuses.GET("/:id", h.Status.GetStatus)
				statuses.PUT("/:id", middleware.RoleAuth(admin), h.Status.UpdateStatus)
				statuses.DELETE("/:id", middleware.RoleAuth(admin), h.Status.DeleteStatus)
			}

			// 任务
			tasks := authorized.Group("/tasks")
			{
				tasks.POST("", middleware.RoleAuth(admin, manager), h.Task.CreateTask)
				tasks.GET("/:id", h.Task.GetTask)
				tasks.PUT("/:id", middleware.RoleAuth(admin, manager), h.Task.UpdateTask)
				tasks.DELETE("/:id", middleware.RoleAuth(admin, manager), h.Task.DeleteTask)
				tasks.GET("/:id/status", h.Task.GetTaskStatus)
				tasks.PUT("/:id/status", middleware.RoleAuth(admin, manager, developer), h.Task.UpdateTaskStatus)
				tasks.GET("/:id/users", h.Task.ListUsers)
			}

			// 任务指派
			userTasks := authorized.Group("/user-tasks")
			{
				userTasks.POST("", middleware.RoleAuth(admin, manager), h.UserTask.Assign)
				userTasks.GET("/:user_id", h.UserTask.ListByUser)
				userTasks.DELETE("/:user_id/:task_id", middleware.RoleAuth(admin, manager), h.UserTask.Remove)
			}

			// 通知发件箱
			authorized.GET("/notifications", middleware.RoleAuth(admin), h.Notification.ListNotifications)
		}
	}

	return r
}
