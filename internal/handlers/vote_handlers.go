package handlers

import (
	"net/http"

	"devflow/internal/api"
	"devflow/internal/models"
	"devflow/internal/services"
	"devflow/internal/utils"
)

// VoteRequest represents a request to vote on a question or answer
type VoteRequest struct {
	TargetID   string `json:"targetId" validate:"required,uuid"`
	TargetType string `json:"targetType" validate:"required,oneof=question answer"`
	VoteType   string `json:"voteType" validate:"required,oneof=upvote downvote"`
}

type SaveRequest struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
}

type voteStatus struct {
	HasUpvoted   bool `json:"hasUpvoted"`
	HasDownvoted bool `json:"hasDownvoted"`
}

func (s *Server) HandleCastVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoteRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		targetID, err := parseID("targetId", req.TargetID)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		result, err := s.Service.CastVote(ctx, services.CastVoteParams{
			TargetID:   targetID,
			TargetType: models.TargetType(req.TargetType),
			VoteType:   models.VoteType(req.VoteType),
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleVoteStatus answers GET /votes/status?targetId=&targetType=.
func (s *Server) HandleVoteStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, err := parseID("targetId", r.URL.Query().Get("targetId"))
		if err != nil {
			api.WriteError(w, err)
			return
		}
		targetType := models.TargetType(r.URL.Query().Get("targetType"))
		if !targetType.Valid() {
			api.WriteError(w, utils.NewValidationError(map[string][]string{"targetType": {"must be question or answer"}}))
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		state, err := s.Service.HasVoted(ctx, targetID, targetType)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, voteStatus{
			HasUpvoted:   state == models.VoteStateUpvoted,
			HasDownvoted: state == models.VoteStateDownvoted,
		})
	}
}

func (s *Server) HandleToggleSave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		questionID, err := parseID("questionId", req.QuestionID)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		saved, err := s.Service.ToggleSaveQuestion(ctx, questionID)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"saved": saved})
	}
}

func (s *Server) HandleSaveStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, err := parseID("questionId", r.URL.Query().Get("questionId"))
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		saved, err := s.Service.HasSavedQuestion(ctx, questionID)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"saved": saved})
	}
}

func (s *Server) HandleListSaved() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readListParams(r, "mostrecent", "oldest", "mostvoted", "mostviewed", "mostanswered")
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		page, err := s.Service.ListSavedQuestions(ctx, services.ListSavedParams{
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
