package httpapi

import (
	"time"

	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

type CategoryDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description,omitempty"`
	SortOrder   int     `json:"sortOrder"`
}

func toCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description, SortOrder: c.SortOrder}
}

type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func categoryRef(id *int64, name *string) *CategoryRef {
	if id == nil {
		return nil
	}
	return &CategoryRef{ID: *id, Name: deref(name)}
}

type ResourceDTO struct {
	ID           int64               `json:"id"`
	Title        string              `json:"title"`
	Slug         string              `json:"slug"`
	Type         models.ResourceType `json:"type"`
	Summary      string              `json:"summary"`
	Content      string              `json:"content,omitempty"`
	URL          *string             `json:"url,omitempty"`
	ThumbnailURL *string             `json:"thumbnailUrl,omitempty"`
	Category     *CategoryRef        `json:"category"`
	AuthorName   string              `json:"authorName"`
	Tags         []string            `json:"tags"`
	MembersOnly  bool                `json:"membersOnly"`
	Status       string              `json:"status"`
	Views        int64               `json:"views"`
	PublishedAt  *string             `json:"publishedAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// toResourceDTO omits the body for list views.
func toResourceDTO(res models.Resource, withContent bool) ResourceDTO {
	dto := ResourceDTO{
		ID:           res.ID,
		Title:        res.Title,
		Slug:         res.Slug,
		Type:         res.Type,
		Summary:      res.Summary,
		URL:          res.URL,
		ThumbnailURL: res.ThumbnailURL,
		Category:     categoryRef(res.CategoryID, res.CategoryName),
		AuthorName:   deref(res.AuthorName),
		Tags:         services.DecodeTags(res.Tags),
		MembersOnly:  res.MembersOnly,
		Status:       res.Status,
		Views:        res.Views,
		PublishedAt:  formatTime(res.PublishedAt),
		UpdatedAt:    res.UpdatedAt,
	}
	if withContent {
		dto.Content = res.Content
	}
	return dto
}

type PlaybookDTO struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Summary     string          `json:"summary"`
	Steps       []services.Step `json:"steps,omitempty"`
	StepCount   int             `json:"stepCount"`
	CoverURL    *string         `json:"coverUrl,omitempty"`
	Category    *CategoryRef    `json:"category"`
	AuthorName  string          `json:"authorName"`
	MembersOnly bool            `json:"membersOnly"`
	Status      string          `json:"status"`
	Views       int64           `json:"views"`
	PublishedAt *string         `json:"publishedAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toPlaybookDTO(p models.Playbook, withSteps bool) PlaybookDTO {
	steps := services.DecodeSteps(p.Steps)
	dto := PlaybookDTO{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Summary:     p.Summary,
		StepCount:   len(steps),
		CoverURL:    p.CoverURL,
		Category:    categoryRef(p.CategoryID, p.CategoryName),
		AuthorName:  deref(p.AuthorName),
		MembersOnly: p.MembersOnly,
		Status:      p.Status,
		Views:       p.Views,
		PublishedAt: formatTime(p.PublishedAt),
		UpdatedAt:   p.UpdatedAt,
	}
	if withSteps {
		dto.Steps = steps
	}
	return dto
}

type TeamMemberDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Bio         *string `json:"bio,omitempty"`
	PhotoURL    *string `json:"photoUrl,omitempty"`
	LinkedInURL *string `json:"linkedinUrl,omitempty"`
	SortOrder   int     `json:"sortOrder"`
	IsActive    bool    `json:"isActive"`
}

func toTeamMemberDTO(m models.TeamMember) TeamMemberDTO {
	return TeamMemberDTO{
		ID:          m.ID,
		Name:        m.Name,
		Title:       m.Title,
		Bio:         m.Bio,
		PhotoURL:    m.PhotoURL,
		LinkedInURL: m.LinkedInURL,
		SortOrder:   m.SortOrder,
		IsActive:    m.IsActive,
	}
}

type EventDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Location    *string `json:"location,omitempty"`
	URL         *string `json:"url,omitempty"`
	CoverURL    *string `json:"coverUrl,omitempty"`
	StartsAt    string  `json:"startsAt"`
	EndsAt      *string `json:"endsAt,omitempty"`
	MembersOnly bool    `json:"membersOnly"`
	IsPublished bool    `json:"isPublished"`
}

func toEventDTO(e models.Event) EventDTO {
	return EventDTO{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		URL:         e.URL,
		CoverURL:    e.CoverURL,
		StartsAt:    e.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:      formatTime(e.EndsAt),
		MembersOnly: e.MembersOnly,
		IsPublished: e.IsPublished,
	}
}

type QuestionDTO struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	Body        string                `json:"body"`
	Status      models.QuestionStatus `json:"status"`
	IsPublic    bool                  `json:"isPublic"`
	Author      AuthorDTO             `json:"author"`
	AnswerCount int                   `json:"answerCount"`
	Answers     []AnswerDTO           `json:"answers,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func toQuestionDTO(q models.Question) QuestionDTO {
	return QuestionDTO{
		ID:          q.ID,
		Title:       q.Title,
		Body:        q.Body,
		Status:      q.Status,
		IsPublic:    q.IsPublic,
		Author:      AuthorDTO{ID: q.UserID, Name: q.AuthorName},
		AnswerCount: q.AnswerCount,
		CreatedAt:   q.CreatedAt,
	}
}

type AnswerDTO struct {
	ID         int64     `json:"id"`
	QuestionID int64     `json:"questionId"`
	Body       string    `json:"body"`
	IsAccepted bool      `json:"isAccepted"`
	Author     AuthorDTO `json:"author"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toAnswerDTO(a models.Answer) AnswerDTO {
	return AnswerDTO{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Body:       a.Body,
		IsAccepted: a.IsAccepted,
		Author:     AuthorDTO{ID: a.UserID, Name: a.AuthorName, Role: a.AuthorRole},
		CreatedAt:  a.CreatedAt,
	}
}

type UploadDTO struct {
	ID         int64  `json:"id"`
	LocationID string `json:"locationId"`
	URL        string `json:"url"`
	Folder     string `json:"folder"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
}

func toUploadDTO(u models.Upload) UploadDTO {
	return UploadDTO{
		ID:         u.ID,
		LocationID: u.LocationID,
		URL:        u.URL,
		Folder:     u.Folder,
		MimeType:   u.MimeType,
		SizeBytes:  u.SizeBytes,
	}
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}
