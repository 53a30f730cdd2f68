package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civictrack-be/middlewares"
	"civictrack-be/services"
)

type CommentController struct {
	comments *services.CommentService
	log      logrus.FieldLogger
}

func NewCommentController(comments *services.CommentService, log logrus.FieldLogger) *CommentController {
	return &CommentController{comments: comments, log: log}
}

// AddComment expects a multipart form with a "commentData" JSON part and
// optional "files" parts.
func (cc *CommentController) AddComment(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}

	var input services.CreateCommentInput
	if err := multipartJSON(c, "commentData", &input); err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	files, closeFiles, err := openUploads(c)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	defer closeFiles()

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := cc.comments.Add(ctx, actor, issueID, input, files)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (cc *CommentController) UpdateComment(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	commentID, err := pathID(c, "commentId")
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}

	var input services.UpdateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := cc.comments.Update(ctx, actor, issueID, commentID, input)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment removes the comment together with all of its replies.
func (cc *CommentController) DeleteComment(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	commentID, err := pathID(c, "commentId")
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := cc.comments.Delete(ctx, actor, issueID, commentID); err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	messageResponse(c, "Comment deleted successfully.")
}

func (cc *CommentController) AddAttachments(c *gin.Context) {
	actor, err := currentUser(c)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	issueID, err := pathID(c, "issueId")
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	commentID, err := pathID(c, "commentId")
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	files, closeFiles, err := openUploads(c)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	defer closeFiles()

	ctx, cancel := requestContext(c)
	defer cancel()

	attachments, err := cc.comments.AddAttachments(ctx, actor, issueID, commentID, files)
	if err != nil {
		middlewares.RespondError(c, cc.log, err)
		return
	}
	c.JSON(http.StatusCreated, attachments)
}
