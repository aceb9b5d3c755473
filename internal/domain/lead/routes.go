package lead

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes registers public lead routes. guards run before the
// submit handler (rate limiting).
func RegisterPublicRoutes(r *gin.RouterGroup, handler *Handler, guards ...gin.HandlerFunc) {
	r.POST("/leads", append(guards, handler.SubmitLead)...)
}

// RegisterAdminRoutes registers admin lead routes
func RegisterAdminRoutes(r *gin.RouterGroup, handler *Handler) {
	leads := r.Group("/leads")
	{
		leads.GET("", handler.ListLeads)
		leads.GET("/export", handler.ExportLeads)
		leads.GET("/:id", handler.GetLead)
		leads.PUT("/:id/status", handler.UpdateStatus)
		leads.DELETE("/:id", handler.DeleteLead)
	}
	r.GET("/stats", handler.GetStats)
}
