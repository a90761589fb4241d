package handlers

import (
	"net/http"

	"devflow/internal/api"
	"devflow/internal/models"
	"devflow/internal/services"
)

// SignUpRequest represents a request to register a new user
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=50"`
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100,password"`
}

// SignInRequest represents a request to log in a user
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type UpdateUserRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=50"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=30,username"`
	Bio       *string `json:"bio" validate:"omitempty,max=1000"`
	Image     *string `json:"image" validate:"omitempty,url"`
	Location  *string `json:"location" validate:"omitempty,max=100"`
	Portfolio *string `json:"portfolio" validate:"omitempty,url"`
}

func (s *Server) HandleSignUp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		user, err := s.Service.SignUp(ctx, services.SignUpParams{
			Name:     req.Name,
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		s.writeAuth(w, http.StatusCreated, user)
	}
}

func (s *Server) HandleSignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignInRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		user, err := s.Service.SignIn(ctx, services.SignInParams{Email: req.Email, Password: req.Password})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		s.writeAuth(w, http.StatusOK, user)
	}
}

func (s *Server) writeAuth(w http.ResponseWriter, status int, user *models.User) {
	token, err := s.Tokens.GenerateToken(user.ID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, status, api.AuthResponse{Token: token, User: user})
}

func (s *Server) HandleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := readListParams(r, "newest", "oldest", "popular")
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		page, err := s.Service.ListUsers(ctx, services.ListUsersParams{Query: p.Query, Filter: p.Filter, Page: p.Page, PageSize: p.PageSize})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

func (s *Server) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		profile, err := s.Service.GetUser(ctx, id)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, profile)
	}
}

func (s *Server) HandleUserQuestions() http.HandlerFunc {
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

		page, err := s.Service.GetUserQuestions(ctx, services.UserContentParams{UserID: id, Page: p.Page, PageSize: p.PageSize})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

func (s *Server) HandleUserAnswers() http.HandlerFunc {
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

		page, err := s.Service.GetUserAnswers(ctx, services.UserContentParams{UserID: id, Page: p.Page, PageSize: p.PageSize})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

func (s *Server) HandleUserTopTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		tags, err := s.Service.GetUserTopTags(ctx, id)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, tags)
	}
}

func (s *Server) HandleUserStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		stats, err := s.Service.GetUserStats(ctx, id)
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, stats)
	}
}

// HandleUpdateUser updates the signed-in user's profile.
func (s *Server) HandleUpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateUserRequest
		if err := decodeAndValidate(r, &req); err != nil {
			api.WriteError(w, err)
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()

		user, err := s.Service.UpdateUser(ctx, services.UpdateUserParams{
			Name:      req.Name,
			Username:  req.Username,
			Bio:       req.Bio,
			Image:     req.Image,
			Location:  req.Location,
			Portfolio: req.Portfolio,
		})
		if err != nil {
			api.WriteError(w, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, user)
	}
}
