package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/middleware"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

// Handlers groups the API handlers mounted under the API prefix.
// Exports and Metrics are optional.
type Handlers struct {
	Mentorship *MentorshipHandler
	Requests   *MenteeRequestHandler
	Mentors    *MentorHandler
	Exports    *ExportHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the mentorship API on api. auth must place
// *models.JWTClaims under middleware.ContextUserKey.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, auth gin.HandlerFunc, logger *zap.Logger) {
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	members := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleAlumni)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logger, action, resource)
	}

	if h.Exports != nil {
		// signed token is the credential
		api.GET("/exports/download/:token", h.Exports.Download)
	}

	secured := api.Group("")
	secured.Use(auth)

	requests := secured.Group("/mentorship/requests")
	requests.POST("", members, audit("CREATE", "mentee_request"), h.Requests.Create)
	requests.GET("", members, h.Requests.List)
	requests.GET("/:id", members, h.Requests.Get)
	requests.POST("/:id/reject", staff, audit("REJECT", "mentee_request"), h.Requests.Reject)
	requests.GET("/:id/suggestions", staff, h.Requests.Suggestions)

	mentorship := secured.Group("/mentorship", staff)
	mentorship.POST("", audit("CREATE", "mentorship_connection"), h.Mentorship.Create)
	mentorship.GET("", h.Mentorship.List)
	mentorship.GET("/:id", h.Mentorship.Get)
	mentorship.PUT("/:id", audit("UPDATE", "mentorship_connection"), h.Mentorship.Update)
	mentorship.DELETE("/:id", audit("DELETE", "mentorship_connection"), h.Mentorship.Delete)

	mentors := secured.Group("/mentors")
	mentors.GET("", members, h.Mentors.List)
	mentors.GET("/:id", members, h.Mentors.Get)
	mentors.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), "SELF"), audit("UPSERT", "mentor_profile"), h.Mentors.Upsert)
	mentors.DELETE("/:id", staff, audit("DEACTIVATE", "mentor_profile"), h.Mentors.Deactivate)

	if h.Exports != nil {
		exports := secured.Group("/exports", staff)
		exports.POST("", audit("EXPORT", "mentorship_connection"), h.Exports.Create)
		exports.GET("/:id", h.Exports.Status)
	}

	if h.Metrics != nil {
		secured.GET("/metrics/summary", staff, h.Metrics.Snapshot)
	}
}
