package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/cloudstory/cloudstory/internal/entities"
	"github.com/cloudstory/cloudstory/internal/middleware"
	"github.com/cloudstory/cloudstory/internal/service"
)

func (s server) register(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /users/register Users Register
	//
	// Register a new user. Multipart form with a `user` json part and an
	// optional `profileImage` file.
	//
	// ---
	// responses:
	//   '200':
	//     description: user created
	//   '400':
	//     description: bad request
	//   '409':
	//     description: email or nickname already taken

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var req RegisterRequest
	if err := json.Unmarshal([]byte(r.FormValue("user")), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user data")
		return
	}

	if req.Email == "" || req.Password == "" || req.Nickname == "" {
		writeError(w, http.StatusBadRequest, "email, password and nickname are required")
		return
	}

	image, err := readUpload(r, "profileImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile image")
		return
	}

	u, err := s.s.Register(r.Context(), &service.RegisterParams{
		Email:        req.Email,
		Nickname:     req.Nickname,
		Password:     req.Password,
		ProfileImage: image,
	})
	if err != nil {
		if errors.Is(err, service.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "email or nickname already in use")
			return
		}
		writeInternalError(r, w, "failed to register user: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, RegisterResponse{Success: true, UserID: u.ID})
}

func (s server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := s.s.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeInternalError(r, w, "failed to login: "+err.Error())
		return
	}

	token, err := s.tokens.Issue(u.Email)
	if err != nil {
		writeInternalError(r, w, "failed to issue token: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, LoginResponse{
		Success:         true,
		Token:           token,
		UserID:          u.ID,
		Email:           u.Email,
		Nickname:        u.Nickname,
		ProfileImageURL: u.ProfileImageURL,
	})
}

func (s server) checkEmail(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.s.SendVerificationCode(r.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		writeInternalError(r, w, "failed to send verification code: "+err.Error())
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: "verification code sent to email"})
}

func (s server) checkNickname(w http.ResponseWriter, r *http.Request) {
	nickname := r.URL.Query().Get("nickname")
	if nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}

	exists, err := s.s.NicknameExists(r.Context(), nickname)
	if err != nil {
		writeInternalError(r, w, "failed to check nickname: "+err.Error())
		return
	}

	if exists {
		writeOK(w, http.StatusConflict, CheckNicknameResponse{
			Success:   false,
			Available: false,
			Message:   "nickname already in use",
		})
		return
	}

	writeOK(w, http.StatusOK, CheckNicknameResponse{Success: true, Available: true})
}

func (s server) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.VerificationCode == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := s.s.VerifyEmail(r.Context(), req.Email, req.VerificationCode)
	if err != nil {
		writeInternalError(r, w, "failed to verify email: "+err.Error())
		return
	}

	if !ok {
		writeError(w, http.StatusBadRequest, "invalid verification code")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: "email verified successfully"})
}

func (s server) updateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var req UpdateUserRequest
	if err := json.Unmarshal([]byte(r.FormValue("user")), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid user data")
		return
	}

	image, err := readUpload(r, "profileImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile image")
		return
	}

	params := service.UpdateUserParams{
		UserID:       u.ID,
		ProfileImage: image,
	}
	if req.Nickname != "" {
		params.Nickname = &req.Nickname
	}
	if req.Password != "" {
		params.Password = &req.Password
	}

	if err := s.s.UpdateUser(r.Context(), &params); err != nil {
		s.writeServiceError(r, w, err, "failed to update user")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: "user information updated successfully"})
}

func (s server) deleteUser(w http.ResponseWriter, r *http.Request) {
	u, ok := principal(w, r)
	if !ok {
		return
	}

	if err := s.s.DeleteUser(r.Context(), u.ID); err != nil {
		s.writeServiceError(r, w, err, "failed to delete user")
		return
	}

	writeOK(w, http.StatusOK, OK{Success: true, Message: "user account deleted successfully"})
}

// principal returns the authenticated user. The authorization policy guards
// the protected routes, the check here only covers misconfiguration.
func principal(w http.ResponseWriter, r *http.Request) (*entities.User, bool) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	return u, true
}

func (s server) writeServiceError(r *http.Request, w http.ResponseWriter, err error, logPrefix string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not an owner")
	case errors.Is(err, service.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already in use")
	case errors.Is(err, service.ErrAlreadyReacted):
		writeError(w, http.StatusConflict, "already reacted")
	case errors.Is(err, service.ErrNotReacted):
		writeError(w, http.StatusConflict, "not reacted")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		writeInternalError(r, w, logPrefix+": "+err.Error())
	}
}

func readUpload(r *http.Request, field string) (*service.Upload, error) {
	f, fh, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}

		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return &service.Upload{Name: fh.Filename, Data: data}, nil
}

func readUploads(r *http.Request, field string) ([]service.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File[field]
	out := make([]service.Upload, 0, len(headers))

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}

		out = append(out, service.Upload{Name: fh.Filename, Data: data})
	}

	return out, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func pageParams(r *http.Request) (page, limit uint32, err error) {
	page, limit = 1, defaultLimit

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return 0, 0, errors.New("invalid page")
		}
		page = uint32(n)
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 || n > maxLimit {
			return 0, 0, errors.New("invalid limit")
		}
		limit = uint32(n)
	}

	return page, limit, nil
}
