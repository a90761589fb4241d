package handlers

import (
	"net/http"

	"devflow/internal/api"
	"devflow/internal/models"
	"devflow/internal/services"
)

// QuestionRequest is the body for creating or editing a question.
type QuestionRequest struct {
	Title   string   `json:"title" validate:"required,min=5,max=100"`
	Content string   `json:"content" validate:"required,min=1"`
	Tags    []string `json:"tags" validate:"required,min=1,max=3,dive,required,notblank,max=30"`
}

type AnswerRequest struct {
	Content string `json:"content" validate:"required,min=100"`
}

func (s *Server) HandleCreateQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuestionRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		question, err := s.Service.CreateQuestion(ctx, services.CreateQuestionParams{
			Title:   req.Title,
			Content: req.Content,
			Tags:    req.Tags,
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, question)
	}
}

func (s *Server) HandleEditQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		var req QuestionRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		question, err := s.Service.EditQuestion(ctx, services.EditQuestionParams{
			QuestionID: id,
			Title:      req.Title,
			Content:    req.Content,
			Tags:       req.Tags,
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, question)
	}
}

func (s *Server) HandleGetQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		question, err := s.Service.GetQuestion(ctx, id)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, question)
	}
}

func (s *Server) HandleListQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readListParams(r, "newest", "unanswered", "popular", "recommended")
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		page, err := s.Service.ListQuestions(ctx, services.ListQuestionsParams{
			Query:    p.Query,
			Filter:   p.Filter,
			Page:     p.Page,
			PageSize: p.PageSize,
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

func (s *Server) HandleIncrementViews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		views, err := s.Service.IncrementViews(ctx, id)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]int{"views": views})
	}
}

func (s *Server) HandleDeleteQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		if err := s.Service.DeleteUserPost(ctx, id, models.TargetQuestion); err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

func (s *Server) HandleCreateAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		var req AnswerRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		answer, err := s.Service.CreateAnswer(ctx, services.CreateAnswerParams{QuestionID: id, Content: req.Content})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, answer)
	}
}

func (s *Server) HandleListAnswers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		p, err := readListParams(r, "latest", "oldest", "popular")
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		page, err := s.Service.ListAnswers(ctx, services.ListAnswersParams{
			QuestionID: id,
			Filter:     p.Filter,
			Page:       p.Page,
			PageSize:   p.PageSize,
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

func (s *Server) HandleDeleteAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		if err := s.Service.DeleteUserPost(ctx, id, models.TargetAnswer); err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}
