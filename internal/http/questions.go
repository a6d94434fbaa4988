package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

const questionSelect = `
SELECT q.id, q.user_id, u.name AS author_name, q.title, q.body, q.status, q.is_public,
       (SELECT COUNT(*) FROM answers a WHERE a.question_id = q.id) AS answer_count,
       q.created_at, q.updated_at
FROM questions q
JOIN users u ON u.id = q.user_id`

const answerSelect = `
SELECT a.id, a.question_id, a.user_id, u.name AS author_name, u.role AS author_role, a.body, a.is_accepted,
       a.created_at, a.updated_at
FROM answers a
JOIN users u ON u.id = a.user_id`

// CreateQuestionRequest carries email and name only for submissions
// without a session.
type CreateQuestionRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"max=10000"`
	IsPublic *bool  `json:"isPublic"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Name     string `json:"name" validate:"max=120"`
}

type CreateAnswerRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

type SetQuestionStatusRequest struct {
	Status models.QuestionStatus `json:"status" validate:"required,oneof=open answered closed"`
}

// ListQuestions shows public questions plus the caller's own. Admins see all.
func (s *Server) ListQuestions(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r, 20, 100)
	where := []string{}
	args := []any{}
	id := identityPtr(r)
	switch {
	case id != nil && id.IsAdmin():
	case id != nil:
		where = append(where, `(q.is_public = 1 OR q.user_id = ?)`)
		args = append(args, id.ID)
	default:
		where = append(where, `q.is_public = 1`)
	}
	if status := models.QuestionStatus(strings.TrimSpace(r.URL.Query().Get("status"))); status != "" {
		if !status.Valid() {
			WriteError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		where = append(where, `q.status = ?`)
		args = append(args, status)
	}
	if r.URL.Query().Get("mine") == "true" && id != nil {
		where = append(where, `q.user_id = ?`)
		args = append(args, id.ID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := s.Store.Get(r.Context(), &total, `SELECT COUNT(*) FROM questions q`+clause, args...); err != nil {
		s.writeErr(w, r, err)
		return
	}
	rows := []models.Question{}
	if err := s.Store.Select(r.Context(), &rows, questionSelect+clause+` ORDER BY q.created_at DESC, q.id DESC LIMIT ? OFFSET ?`,
		append(args, size, (page-1)*size)...); err != nil {
		s.writeErr(w, r, err)
		return
	}
	items := make([]QuestionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toQuestionDTO(row))
	}
	WriteJSON(w, http.StatusOK, ListResponse[QuestionDTO]{Items: items, Total: total, Page: page, Size: size})
}

func (s *Server) QuestionDetail(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionId")
	if !ok {
		return
	}
	question, ok := s.visibleQuestion(w, r, questionID)
	if !ok {
		return
	}
	answers := []models.Answer{}
	if err := s.Store.Select(r.Context(), &answers, answerSelect+` WHERE a.question_id = ? ORDER BY a.is_accepted DESC, a.created_at ASC, a.id ASC`, questionID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	dto := toQuestionDTO(question)
	dto.Answers = make([]AnswerDTO, 0, len(answers))
	for _, a := range answers {
		dto.Answers = append(dto.Answers, toAnswerDTO(a))
	}
	WriteJSON(w, http.StatusOK, dto)
}

// visibleQuestion loads a question the caller may read and writes 404
// otherwise.
func (s *Server) visibleQuestion(w http.ResponseWriter, r *http.Request, questionID int64) (models.Question, bool) {
	var question models.Question
	err := s.Store.Get(r.Context(), &question, questionSelect+` WHERE q.id = ?`, questionID)
	if db.IsNotFound(err) {
		WriteError(w, http.StatusNotFound, "Question not found")
		return models.Question{}, false
	}
	if err != nil {
		s.writeErr(w, r, err)
		return models.Question{}, false
	}
	id := identityPtr(r)
	if !question.IsPublic && (id == nil || (!id.IsAdmin() && id.ID != question.UserID)) {
		WriteError(w, http.StatusNotFound, "Question not found")
		return models.Question{}, false
	}
	return question, true
}

// CreateQuestion accepts anonymous submissions. Without a session the
// author is resolved by email, creating a guest account on first use.
func (s *Server) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var authorID int64
	var authorEmail string
	if id, ok := CurrentIdentity(r); ok {
		authorID, authorEmail = id.ID, id.Email
	} else {
		if strings.TrimSpace(req.Email) == "" {
			WriteError(w, http.StatusBadRequest, "email is required")
			return
		}
		guest, err := services.FindOrCreateGuest(r.Context(), s.Store, req.Email, req.Name)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		authorID, authorEmail = guest.ID, guest.Email
	}
	now := time.Now().UTC()
	res, err := s.Store.Exec(r.Context(), `
INSERT INTO questions (user_id, title, body, status, is_public, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		authorID, strings.TrimSpace(req.Title), strings.TrimSpace(req.Body), models.QuestionOpen,
		boolOr(req.IsPublic, true), now, now)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	questionID := *res.InsertID
	s.notify(r, services.Event{
		Type:    services.EventQuestionCreated,
		Email:   authorEmail,
		Subject: "New question: " + strings.TrimSpace(req.Title),
		Data:    map[string]string{"questionId": strconv.FormatInt(questionID, 10)},
	})
	var question models.Question
	if err := s.Store.Get(r.Context(), &question, questionSelect+` WHERE q.id = ?`, questionID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toQuestionDTO(question))
}

// CreateAnswer marks an open question answered when staff reply.
func (s *Server) CreateAnswer(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionId")
	if !ok {
		return
	}
	var req CreateAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	question, ok := s.visibleQuestion(w, r, questionID)
	if !ok {
		return
	}
	if question.Status == models.QuestionClosed {
		WriteError(w, http.StatusConflict, "Question is closed")
		return
	}
	id, _ := CurrentIdentity(r)
	now := time.Now().UTC()
	res, err := s.Store.Exec(r.Context(), `
INSERT INTO answers (question_id, user_id, body, is_accepted, created_at, updated_at)
VALUES (?, ?, ?, 0, ?, ?)`, questionID, id.ID, strings.TrimSpace(req.Body), now, now)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if id.IsAdmin() && question.Status == models.QuestionOpen {
		if _, err := s.Store.Exec(r.Context(), `UPDATE questions SET status = ?, updated_at = ? WHERE id = ?`,
			models.QuestionAnswered, now, questionID); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}
	if owner, err := services.GetUserByID(r.Context(), s.Store, question.UserID); err == nil && owner.ID != id.ID {
		s.notify(r, services.Event{
			Type:    services.EventAnswerCreated,
			Email:   owner.Email,
			Subject: "New answer to: " + question.Title,
			Link:    s.Config.FrontendURL + "/questions/" + strconv.FormatInt(questionID, 10),
		})
	}
	var answer models.Answer
	if err := s.Store.Get(r.Context(), &answer, answerSelect+` WHERE a.id = ?`, *res.InsertID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toAnswerDTO(answer))
}

func (s *Server) SetQuestionStatus(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionId")
	if !ok {
		return
	}
	var req SetQuestionStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Store.Exec(r.Context(), `UPDATE questions SET status = ?, updated_at = ? WHERE id = ?`,
		req.Status, time.Now().UTC(), questionID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if res.AffectedRows == 0 {
		WriteError(w, http.StatusNotFound, "Question not found")
		return
	}
	var question models.Question
	if err := s.Store.Get(r.Context(), &question, questionSelect+` WHERE q.id = ?`, questionID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toQuestionDTO(question))
}

// DeleteQuestion is allowed for the author and for admins. Answers go with
// the question through the foreign key.
func (s *Server) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionId")
	if !ok {
		return
	}
	rows, _, err := s.Store.Execute(r.Context(), `SELECT user_id FROM questions WHERE id = ?`, questionID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if len(rows.Rows) == 0 {
		WriteError(w, http.StatusNotFound, "Question not found")
		return
	}
	id, _ := CurrentIdentity(r)
	if ownerID, _ := rows.Rows[0]["user_id"].(int64); !id.IsAdmin() && ownerID != id.ID {
		WriteError(w, http.StatusForbidden, "Not allowed to delete this question")
		return
	}
	res, _, err := s.Store.Execute(r.Context(), `DELETE FROM questions WHERE id = ?`, questionID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if res.AffectedRows == 0 {
		WriteError(w, http.StatusNotFound, "Question not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptAnswer keeps at most one accepted answer per question.
func (s *Server) AcceptAnswer(w http.ResponseWriter, r *http.Request) {
	answerID, ok := pathID(w, r, "answerId")
	if !ok {
		return
	}
	var target struct {
		QuestionID int64 `db:"question_id"`
		OwnerID    int64 `db:"owner_id"`
	}
	err := s.Store.Get(r.Context(), &target, `
SELECT a.question_id, q.user_id AS owner_id
FROM answers a JOIN questions q ON q.id = a.question_id
WHERE a.id = ?`, answerID)
	if err != nil {
		s.writeErr(w, r, notFoundAs(err, "Answer not found"))
		return
	}
	id, _ := CurrentIdentity(r)
	if !id.IsAdmin() && id.ID != target.OwnerID {
		WriteError(w, http.StatusForbidden, "Only the question author can accept an answer")
		return
	}
	conn, err := s.Store.Conn(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	defer conn.Release()
	now := time.Now().UTC()
	if _, err := conn.Exec(r.Context(), `
UPDATE answers SET is_accepted = CASE WHEN id = ? THEN 1 ELSE 0 END, updated_at = ?
WHERE question_id = ?`, answerID, now, target.QuestionID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if _, err := conn.Exec(r.Context(), `UPDATE questions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.QuestionAnswered, now, target.QuestionID, models.QuestionOpen); err != nil {
		s.writeErr(w, r, err)
		return
	}
	var answer models.Answer
	if err := s.Store.Get(r.Context(), &answer, answerSelect+` WHERE a.id = ?`, answerID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAnswerDTO(answer))
}

func (s *Server) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	answerID, ok := pathID(w, r, "answerId")
	if !ok {
		return
	}
	var ownerID int64
	if err := s.Store.Get(r.Context(), &ownerID, `SELECT user_id FROM answers WHERE id = ?`, answerID); err != nil {
		s.writeErr(w, r, notFoundAs(err, "Answer not found"))
		return
	}
	id, _ := CurrentIdentity(r)
	if !id.IsAdmin() && id.ID != ownerID {
		WriteError(w, http.StatusForbidden, "Not allowed to delete this answer")
		return
	}
	if _, err := s.Store.Exec(r.Context(), `DELETE FROM answers WHERE id = ?`, answerID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
