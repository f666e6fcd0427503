package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/config"
	"github.com/justsurfingit/KarirConnect/internal/logger"
	"github.com/justsurfingit/KarirConnect/internal/metrics"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/services"
	"github.com/justsurfingit/KarirConnect/internal/storage"
)

// Deps is everything the router needs
type Deps struct {
	Config   config.ServerConfig
	Log      *zap.Logger
	DB       *gorm.DB
	Verifier *auth.Verifier
	Storage  storage.Store

	Users         *services.UserService
	Companies     *services.CompanyService
	Jobs          *services.JobService
	Applications  *services.ApplicationService
	Invitations   *services.InvitationService
	Notifications *services.NotificationService
	Dashboards    *services.DashboardService
	LLM           *services.LLMService
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(d.Log), metrics.GinMiddleware(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(d.Config.AllowedOrigins) == 0 || d.Config.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.Config.AllowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsCfg))

	r.GET("/metrics", metrics.Handler())
	if local, ok := d.Storage.(*storage.Local); ok {
		r.Static("/uploads", local.Dir())
	}

	health := &HealthHandler{DB: d.DB}
	jobs := NewJobHandler(d.LLM, d.Jobs)
	companies := NewCompanyHandler(d.Companies)
	applications := NewApplicationHandler(d.Applications)
	invitations := NewInvitationHandler(d.Invitations)
	notifications := NewNotificationHandler(d.Notifications)
	users := NewUserHandler(d.Users, d.Dashboards)

	upload := limitBody(d.Config.MaxUploadBytes)
	employer := auth.RequireRole(models.RoleEmployer, models.RoleAdmin)
	candidate := auth.RequireRole(models.RoleCandidate)
	admin := auth.RequireRole(models.RoleAdmin)

	api := r.Group("/api/v1")
	api.GET("/health", health.HealthCheck)

	public := api.Group("", d.Verifier.Optional(d.Users))
	{
		public.GET("/jobs", jobs.ListJobs)
		public.GET("/jobs/:id", jobs.GetJob)
		public.GET("/companies", companies.List)
		public.GET("/companies/:id", companies.Get)
	}

	private := api.Group("", d.Verifier.Required(d.Users))
	{
		private.GET("/me", users.Me)
		private.PUT("/me", users.UpdateMe)
		private.GET("/dashboard", users.Dashboard)

		private.POST("/companies", employer, companies.Create)
		private.GET("/companies/mine", employer, companies.Mine)
		private.PUT("/companies/:id", employer, companies.Update)
		private.DELETE("/companies/:id", employer, companies.Delete)
		private.POST("/companies/:id/logo", employer, upload, companies.UploadLogo)

		private.POST("/jobs/extract", employer, jobs.ParseJob)
		private.POST("/jobs", employer, jobs.CreateJob)
		private.PUT("/jobs/:id", employer, jobs.UpdateJob)
		private.DELETE("/jobs/:id", employer, jobs.DeleteJob)
		private.PATCH("/jobs/:id/status", employer, jobs.ChangeStatus)
		private.GET("/jobs/:id/events", employer, jobs.Events)

		private.POST("/jobs/:id/applications", candidate, upload, applications.Apply)
		private.GET("/jobs/:id/applications", employer, applications.ListForJob)
		private.GET("/applications/mine", candidate, applications.ListMine)
		private.GET("/applications/:id", applications.Get)
		private.PATCH("/applications/:id/status", employer, applications.UpdateStatus)
		private.POST("/applications/:id/withdraw", candidate, applications.Withdraw)
		private.GET("/applications/:id/resume", applications.Resume)

		private.POST("/invitations", employer, invitations.Invite)
		private.GET("/invitations", invitations.List)
		private.GET("/invitations/unread-count", invitations.UnreadCount)
		private.GET("/invitations/:id", invitations.Get)
		private.POST("/invitations/:id/respond", candidate, invitations.Respond)
		private.GET("/invitations/:id/messages", invitations.Thread)
		private.POST("/invitations/:id/messages", invitations.SendMessage)
		private.POST("/invitations/:id/read", invitations.MarkRead)

		private.GET("/notifications", notifications.List)
		private.GET("/notifications/unread-count", notifications.UnreadCount)
		private.POST("/notifications/read-all", notifications.MarkAllRead)
		private.POST("/notifications/:id/read", notifications.MarkRead)
	}

	adminGroup := private.Group("/admin", admin)
	{
		adminGroup.GET("/dashboard", users.AdminDashboard)
		adminGroup.PATCH("/companies/:id/verify", companies.Verify)
		adminGroup.GET("/notifications/:id/deliveries", notifications.Deliveries)
	}

	return r
}
