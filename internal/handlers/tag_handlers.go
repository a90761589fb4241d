package handlers

import (
	"net/http"

	"devflow/internal/api"
	"devflow/internal/services"
	"devflow/internal/utils"
)

func (s *Server) HandleListTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readListParams(r, "popular", "recent", "oldest", "name")
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		page, err := s.Service.ListTags(ctx, services.ListTagsParams{
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

func (s *Server) HandleTagQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		p, err := readListParams(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		result, err := s.Service.GetTagQuestions(ctx, services.TagQuestionsParams{
			TagID:    id,
			Query:    p.Query,
			Page:     p.Page,
			PageSize: p.PageSize,
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, result)
	}
}

// HandleGlobalSearch answers GET /search?query=&type=.
func (s *Server) HandleGlobalSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query == "" {
			api.WriteError(w, utils.NewValidationError(map[string][]string{"query": {"is required"}}))
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		results, err := s.Service.GlobalSearch(ctx, services.GlobalSearchParams{
			Query: query,
			Type:  r.URL.Query().Get("type"),
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, results)
	}
}
