package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"civictrack-be/apperr"
	"civictrack-be/filestore"
	"civictrack-be/middlewares"
	"civictrack-be/models"
)

const requestTimeout = 10 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("Invalid %s: %s", name, raw)
	}
	return id, nil
}

func currentUser(c *gin.Context) (*models.User, error) {
	actor := middlewares.Actor(c)
	if actor == nil {
		return nil, apperr.Unauthorized("User not authenticated")
	}
	return actor, nil
}

// bindJSONBody decodes raw into v and runs the binding validator on it.
func bindJSONBody(raw []byte, v any) error {
	if len(raw) == 0 {
		return io.EOF
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(v)
}

// multipartJSON reads a JSON request part sent either as a plain form field
// or as a file part with its own content type.
func multipartJSON(c *gin.Context, part string, v any) error {
	if raw, ok := c.GetPostForm(part); ok {
		return bindJSONBody([]byte(raw), v)
	}
	fh, err := c.FormFile(part)
	if err != nil {
		return apperr.BadRequest("Required part '%s' is not present.", part)
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open %s part: %w", part, err)
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s part: %w", part, err)
	}
	return bindJSONBody(raw, v)
}

// openUploads opens every "files" part of the form. The returned closer must
// be called once the uploads have been consumed.
func openUploads(c *gin.Context) ([]filestore.FileUpload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, apperr.BadRequest("Request must be multipart/form-data.")
		}
		return nil, func() {}, apperr.BadRequest("Malformed multipart request.")
	}

	var (
		uploads []filestore.FileUpload
		opened  []multipart.File
	)
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, filestore.FileUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return uploads, closeAll, nil
}

func messageResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}
