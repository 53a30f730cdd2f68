package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civictrack-be/middlewares"
	"civictrack-be/services"
)

// LookupController serves the user directory and the lookup tables.
type LookupController struct {
	lookups *services.LookupService
	log     logrus.FieldLogger
}

func NewLookupController(lookups *services.LookupService, log logrus.FieldLogger) *LookupController {
	return &LookupController{lookups: lookups, log: log}
}

// GetAllUsers lists users, optionally only those with ?role=.
func (lc *LookupController) GetAllUsers(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := lc.lookups.Users(ctx, c.Query("role"))
	if err != nil {
		middlewares.RespondError(c, lc.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (lc *LookupController) GetCategories(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	categories, err := lc.lookups.Categories(ctx)
	if err != nil {
		middlewares.RespondError(c, lc.log, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (lc *LookupController) GetStatuses(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	statuses, err := lc.lookups.Statuses(ctx)
	if err != nil {
		middlewares.RespondError(c, lc.log, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

func (lc *LookupController) GetPriorities(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	priorities, err := lc.lookups.Priorities(ctx)
	if err != nil {
		middlewares.RespondError(c, lc.log, err)
		return
	}
	c.JSON(http.StatusOK, priorities)
}
