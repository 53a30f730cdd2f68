package services

import (
	"time"

	"civictrack-be/models"
)

// Request payloads. Binding tags are enforced by gin's validator in the
// controllers; the services re-check only what the validator cannot.

type CreateIssueInput struct {
	Title       string   `json:"title" binding:"required,min=10,max=255"`
	Description string   `json:"description" binding:"required,min=20"`
	Category    string   `json:"category" binding:"required"`
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
}

// UpdateIssueInput is a partial update; nil fields are left untouched.
type UpdateIssueInput struct {
	Title       *string    `json:"title" binding:"omitempty,min=10,max=255"`
	Description *string    `json:"description" binding:"omitempty,min=20"`
	CategoryID  *int64     `json:"categoryId"`
	StatusID    *int64     `json:"statusId"`
	PriorityID  *int64     `json:"priorityId"`
	AssigneeID  *int64     `json:"assigneeId"` // 0 unassigns
	StartDate   *time.Time `json:"startDate"`
	DueDate     *time.Time `json:"dueDate"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
}

type CreateCommentInput struct {
	Text     string `json:"text" binding:"required"`
	ParentID *int64 `json:"parentId"`
}

type UpdateCommentInput struct {
	Text string `json:"text" binding:"required"`
}

type RegisterInput struct {
	FullName string `json:"fullName" binding:"required,min=3,max=200"`
	UserName string `json:"userName" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type LoginInput struct {
	UserName string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Response projections.

type UserSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func userSummary(ref *models.UserRef) *UserSummary {
	if ref == nil {
		return nil
	}
	return &UserSummary{ID: ref.ID, Name: ref.Name}
}

type AttachmentView struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	FileType  string    `json:"fileType"`
	CreatedAt time.Time `json:"createdAt"`
}

func attachmentView(a models.Attachment) AttachmentView {
	return AttachmentView{
		ID:        a.ID,
		URL:       a.URL,
		FileName:  a.FileName,
		FileType:  a.FileType,
		CreatedAt: a.CreatedAt,
	}
}

func attachmentViews(list []models.Attachment) []AttachmentView {
	out := make([]AttachmentView, 0, len(list))
	for _, a := range list {
		out = append(out, attachmentView(a))
	}
	return out
}

// AttachmentResponse is returned when attachments are added directly.
// IssueID is always set; CommentID only for comment attachments.
type AttachmentResponse struct {
	AttachmentView
	IssueID   int64  `json:"issueId"`
	CommentID *int64 `json:"commentId"`
}

type CommentView struct {
	ID          int64            `json:"id"`
	Text        string           `json:"text"`
	CreatedAt   time.Time        `json:"createdAt"`
	Author      *UserSummary     `json:"author"`
	Attachments []AttachmentView `json:"attachments"`
	ParentID    *int64           `json:"parentId"`
}

func commentView(c models.Comment, attachments []models.Attachment) CommentView {
	return CommentView{
		ID:          c.ID,
		Text:        c.Text,
		CreatedAt:   c.CreatedAt,
		Author:      userSummary(&c.Author),
		Attachments: attachmentViews(attachments),
		ParentID:    c.ParentID,
	}
}

type IssueDetails struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category,omitempty"`
	Status      string           `json:"status,omitempty"`
	Priority    string           `json:"priority,omitempty"`
	Latitude    *float64         `json:"latitude"`
	Longitude   *float64         `json:"longitude"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Reporter    *UserSummary     `json:"reporter"`
	Assignee    *UserSummary     `json:"assignee"`
	StartDate   *time.Time       `json:"startDate"`
	DueDate     *time.Time       `json:"dueDate"`
	Attachments []AttachmentView `json:"attachments"`
	Comments    []CommentView    `json:"comments"`
}

func issueDetails(issue *models.Issue, attachments []models.Attachment, comments []CommentView) *IssueDetails {
	d := &IssueDetails{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Latitude:    issue.Latitude,
		Longitude:   issue.Longitude,
		CreatedAt:   issue.CreatedAt,
		UpdatedAt:   issue.UpdatedAt,
		Reporter:    userSummary(&issue.Reporter),
		Assignee:    userSummary(issue.Assignee),
		StartDate:   issue.StartDate,
		DueDate:     issue.DueDate,
		Attachments: attachmentViews(attachments),
		Comments:    comments,
	}
	if d.Comments == nil {
		d.Comments = []CommentView{}
	}
	if issue.Category != nil {
		d.Category = issue.Category.Name
	}
	if issue.Status != nil {
		d.Status = issue.Status.Name
	}
	if issue.Priority != nil {
		d.Priority = issue.Priority.Name
	}
	return d
}

type IssueSummary struct {
	ID         int64        `json:"id"`
	Title      string       `json:"title"`
	Category   string       `json:"category,omitempty"`
	Status     string       `json:"status"`
	Priority   string       `json:"priority"`
	ReportedAt time.Time    `json:"reportedAt"`
	Reporter   *UserSummary `json:"reporter"`
	Assignee   *UserSummary `json:"assignee"`
}

// issueSummary falls back to the default status and priority names for
// issues created before those lookups existed.
func issueSummary(issue models.Issue) IssueSummary {
	s := IssueSummary{
		ID:         issue.ID,
		Title:      issue.Title,
		Status:     models.DefaultStatusName,
		Priority:   models.DefaultPriorityName,
		ReportedAt: issue.CreatedAt,
		Reporter:   userSummary(&issue.Reporter),
		Assignee:   userSummary(issue.Assignee),
	}
	if issue.Category != nil {
		s.Category = issue.Category.Name
	}
	if issue.Status != nil {
		s.Status = issue.Status.Name
	}
	if issue.Priority != nil {
		s.Priority = issue.Priority.Name
	}
	return s
}

type UserView struct {
	ID       int64    `json:"id"`
	FullName string   `json:"fullName"`
	UserName string   `json:"userName"`
	Roles    []string `json:"roles"`
}

// roleNames renders roles with the ROLE_ prefix API clients expect.
func roleNames(roles []models.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, "ROLE_"+string(r))
	}
	return out
}

func userView(u models.User) UserView {
	return UserView{ID: u.ID, FullName: u.FullName, UserName: u.UserName, Roles: roleNames(u.Roles)}
}

type AuthResponse struct {
	FullName    string   `json:"fullName"`
	UserName    string   `json:"userName"`
	Roles       []string `json:"roles"`
	AccessToken string   `json:"accessToken"`
}
