package routes

import (
	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue, comment and attachment routes
func IssueRoutes(r *gin.Engine, h *Handlers) {
	issues := r.Group("/api/issues", h.requireAuth())
	{
		issues.POST("", h.issueLimiter(), h.Issues.CreateIssue)
		issues.GET("", h.Issues.GetAllIssues)
		issues.GET("/:issueId", h.Issues.GetIssue)
		issues.PUT("/:issueId", h.Issues.UpdateIssue)
		issues.DELETE("/:issueId", h.Issues.DeleteIssue)

		issues.POST("/:issueId/attachments", h.Issues.AddAttachments)
		issues.DELETE("/:issueId/attachments/:attachmentId", h.Issues.DeleteAttachment)

		issues.POST("/:issueId/comments", h.Comments.AddComment)
		issues.PUT("/:issueId/comments/:commentId", h.Comments.UpdateComment)
		issues.DELETE("/:issueId/comments/:commentId", h.Comments.DeleteComment)
		issues.POST("/:issueId/comments/:commentId/attachments", h.Comments.AddAttachments)
	}
}
