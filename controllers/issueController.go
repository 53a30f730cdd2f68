package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civictrack-be/middlewares"
	"civictrack-be/query"
	"civictrack-be/services"
)

type IssueController struct {
	issues *services.IssueService
	log    logrus.FieldLogger
}

func NewIssueController(issues *services.IssueService, log logrus.FieldLogger) *IssueController {
	return &IssueController{issues: issues, log: log}
}

// CreateIssue expects a multipart form with an "issueData" JSON part and at
// least one "files" part.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}

	var input services.CreateIssueInput
	if err := multipartJSON(c, "issueData", &input); err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	files, closeFiles, err := openUploads(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	defer closeFiles()

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.Create(ctx, actor, input, files)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// GetAllIssues lists issues with paging, sorting and the dashboard filters.
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}

	page, err := query.ParsePageRequest(c.Query("page"), c.Query("size"), c.QueryArray("sort"))
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	params := query.Params{
		Search:     c.Query("search"),
		Category:   c.Query("category"),
		Status:     c.Query("status"),
		ReportedBy: c.Query("reportedBy"),
		AssignedTo: c.Query("assignedTo"),
		Filters:    c.QueryArray("filter"),
		Page:       page,
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issues, err := ic.issues.List(ctx, actor, params)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (ic *IssueController) GetIssue(c *gin.Context) {
	id, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.GetByID(ctx, id)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateIssue applies a partial update; absent fields are left untouched.
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	id, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}

	var input services.UpdateIssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.Update(ctx, actor, id, input)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (ic *IssueController) DeleteIssue(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	id, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ic.issues.Delete(ctx, actor, id); err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	messageResponse(c, fmt.Sprintf("Issue %d deleted successfully.", id))
}

func (ic *IssueController) AddAttachments(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	id, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	files, closeFiles, err := openUploads(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	defer closeFiles()

	ctx, cancel := requestContext(c)
	defer cancel()

	attachments, err := ic.issues.AddAttachments(ctx, actor, id, files)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	c.JSON(http.StatusCreated, attachments)
}

// DeleteAttachment removes an issue or comment attachment reached through
// the issue in the path.
func (ic *IssueController) DeleteAttachment(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	attachmentID, err := pathID(c, "attachmentId")
	if err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ic.issues.DeleteAttachment(ctx, actor, issueID, attachmentID); err != nil {
		middlewares.RespondError(c, ic.log, err)
		return
	}
	messageResponse(c, "Attachment deleted successfully.")
}
