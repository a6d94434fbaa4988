package models

import "time"

type Role string

const (
	RoleUser       Role = "user"
	RoleMember     Role = "member"
	RoleAdmin      Role = "admin"
	RoleExecutive  Role = "executive"
	RoleUniversity Role = "university"
	RoleCompany    Role = "company"
)

var Roles = []Role{RoleUser, RoleMember, RoleAdmin, RoleExecutive, RoleUniversity, RoleCompany}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role passes the admin gate.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleExecutive
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	return s == ApprovalPending || s == ApprovalApproved || s == ApprovalRejected
}

// AccountKind separates password accounts from guests created by content
// submission. A guest has no credential and can never log in.
type AccountKind string

const (
	AccountRegistered AccountKind = "registered"
	AccountGuest      AccountKind = "guest"
)

type User struct {
	ID                int64          `db:"id"`
	Email             string         `db:"email"`
	PasswordHash      *string        `db:"password_hash"`
	AccountKind       AccountKind    `db:"account_kind"`
	Name              string         `db:"name"`
	Role              Role           `db:"role"`
	ApprovalStatus    ApprovalStatus `db:"approval_status"`
	IsBanned          bool           `db:"is_banned"`
	ResetToken        *string        `db:"reset_token"`
	ResetTokenExpires *time.Time     `db:"reset_token_expires"`
	AvatarURL         *string        `db:"avatar_url"`
	Bio               *string        `db:"bio"`
	Organization      *string        `db:"organization"`
	LastLoginAt       *time.Time     `db:"last_login_at"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (u User) IsGuest() bool {
	return u.AccountKind == AccountGuest || u.PasswordHash == nil
}

type Category struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description *string   `db:"description"`
	SortOrder   int       `db:"sort_order"`
	CreatedAt   time.Time `db:"created_at"`
}

type ResourceType string

const (
	ResourceArticle  ResourceType = "article"
	ResourceVideo    ResourceType = "video"
	ResourceDocument ResourceType = "document"
	ResourceLink     ResourceType = "link"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceArticle, ResourceVideo, ResourceDocument, ResourceLink:
		return true
	}
	return false
}

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Resource struct {
	ID           int64        `db:"id"`
	Title        string       `db:"title"`
	Slug         string       `db:"slug"`
	Type         ResourceType `db:"type"`
	Summary      string       `db:"summary"`
	Content      string       `db:"content"`
	URL          *string      `db:"url"`
	ThumbnailURL *string      `db:"thumbnail_url"`
	CategoryID   *int64       `db:"category_id"`
	CategoryName *string      `db:"category_name"`
	AuthorID     *int64       `db:"author_id"`
	AuthorName   *string      `db:"author_name"`
	Tags         string       `db:"tags"`
	MembersOnly  bool         `db:"members_only"`
	Status       string       `db:"status"`
	Views        int64        `db:"views"`
	PublishedAt  *time.Time   `db:"published_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

type Playbook struct {
	ID           int64      `db:"id"`
	Title        string     `db:"title"`
	Slug         string     `db:"slug"`
	Summary      string     `db:"summary"`
	Steps        string     `db:"steps"`
	CoverURL     *string    `db:"cover_url"`
	CategoryID   *int64     `db:"category_id"`
	CategoryName *string    `db:"category_name"`
	AuthorID     *int64     `db:"author_id"`
	AuthorName   *string    `db:"author_name"`
	MembersOnly  bool       `db:"members_only"`
	Status       string     `db:"status"`
	Views        int64      `db:"views"`
	PublishedAt  *time.Time `db:"published_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

type TeamMember struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Title       string    `db:"title"`
	Bio         *string   `db:"bio"`
	PhotoURL    *string   `db:"photo_url"`
	LinkedInURL *string   `db:"linkedin_url"`
	SortOrder   int       `db:"sort_order"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Event struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Location    *string    `db:"location"`
	URL         *string    `db:"url"`
	CoverURL    *string    `db:"cover_url"`
	StartsAt    time.Time  `db:"starts_at"`
	EndsAt      *time.Time `db:"ends_at"`
	MembersOnly bool       `db:"members_only"`
	IsPublished bool       `db:"is_published"`
	CreatedBy   *int64     `db:"created_by"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

type QuestionStatus string

const (
	QuestionOpen     QuestionStatus = "open"
	QuestionAnswered QuestionStatus = "answered"
	QuestionClosed   QuestionStatus = "closed"
)

func (s QuestionStatus) Valid() bool {
	return s == QuestionOpen || s == QuestionAnswered || s == QuestionClosed
}

type Question struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	AuthorName  string         `db:"author_name"`
	Title       string         `db:"title"`
	Body        string         `db:"body"`
	Status      QuestionStatus `db:"status"`
	IsPublic    bool           `db:"is_public"`
	AnswerCount int            `db:"answer_count"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type Answer struct {
	ID         int64     `db:"id"`
	QuestionID int64     `db:"question_id"`
	UserID     int64     `db:"user_id"`
	AuthorName string    `db:"author_name"`
	AuthorRole Role      `db:"author_role"`
	Body       string    `db:"body"`
	IsAccepted bool      `db:"is_accepted"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type Upload struct {
	ID           int64     `db:"id"`
	LocationID   string    `db:"location_id"`
	UserID       *int64    `db:"user_id"`
	Backend      string    `db:"backend"`
	Folder       string    `db:"folder"`
	OriginalName string    `db:"original_name"`
	MimeType     string    `db:"mime_type"`
	SizeBytes    int64     `db:"size_bytes"`
	URL          string    `db:"url"`
	CreatedAt    time.Time `db:"created_at"`
}

type ServerMetricSample struct {
	ID                int64     `db:"id"`
	CapturedAt        time.Time `db:"captured_at"`
	HeapUsedBytes     int64     `db:"heap_used_bytes"`
	HeapSysBytes      int64     `db:"heap_sys_bytes"`
	SystemMemoryTotal int64     `db:"system_memory_total_bytes"`
	SystemMemoryUsed  int64     `db:"system_memory_used_bytes"`
	DiskTotalBytes    int64     `db:"disk_total_bytes"`
	DiskUsedBytes     int64     `db:"disk_used_bytes"`
	ProcessCpuLoad    float64   `db:"process_cpu_load"`
	SystemCpuLoad     float64   `db:"system_cpu_load"`
}
