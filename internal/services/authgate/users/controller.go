package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/NordCoder/Authgate/internal/domain/user"
	"github.com/NordCoder/Authgate/internal/httpx"
	"github.com/NordCoder/Authgate/internal/obs"
	"github.com/NordCoder/Authgate/internal/password"
	authsvc "github.com/NordCoder/Authgate/internal/services/authgate/auth"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type createBody struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Roles    []user.Role `json:"roles"`
}

type updateBody struct {
	Email string      `json:"email"`
	Roles []user.Role `json:"roles"`
}

type Controller struct {
	uc   *Usecase
	auth authsvc.Authenticator
	log  *zap.Logger
}

func NewController(uc *Usecase, auth authsvc.Authenticator, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{uc: uc, auth: auth, log: log}
}

// Register mounts /api/users. Every route needs an access bearer.
func (c *Controller) Register(r *mux.Router) {
	s := r.PathPrefix("/api/users").Subrouter()
	s.Use(authsvc.RequireAuth(c.auth))
	s.HandleFunc("", c.list).Methods(http.MethodGet)
	s.HandleFunc("/", c.list).Methods(http.MethodGet)
	s.HandleFunc("", c.create).Methods(http.MethodPost)
	s.HandleFunc("/", c.create).Methods(http.MethodPost)
	s.HandleFunc("/{id}", c.update).Methods(http.MethodPut)
	s.HandleFunc("/{id}", c.delete).Methods(http.MethodDelete)
}

func (c *Controller) list(w http.ResponseWriter, r *http.Request) {
	out, err := c.uc.List(r.Context())
	if err != nil {
		c.mapErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (c *Controller) create(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := httpx.Decode(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var v httpx.ValidationError
	if body.Email == "" {
		v.Add("email", "required")
	}
	switch {
	case body.Password == "":
		v.Add("password", "required")
	case len(body.Password) > password.MaxLength:
		v.Add("password", "too long")
	}
	if err := v.OrNil(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}

	u, err := c.uc.Create(r.Context(), body.Email, body.Password, body.Roles)
	if err != nil {
		c.mapErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (c *Controller) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body updateBody
	if err := httpx.Decode(r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if body.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, &httpx.ValidationError{Fields: map[string]string{"email": "required"}})
		return
	}

	u, err := c.uc.Update(r.Context(), id, body.Email, body.Roles)
	if err != nil {
		c.mapErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (c *Controller) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := c.uc.Delete(r.Context(), id)
	if err != nil {
		c.mapErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, &httpx.ValidationError{Fields: map[string]string{"id": "must be a positive integer"}})
		return 0, false
	}
	return id, true
}

func (c *Controller) mapErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.Message{Message: user.ErrNotFound.Error()})
	case errors.Is(err, password.ErrTooLong):
		httpx.WriteError(w, http.StatusBadRequest, &httpx.ValidationError{Fields: map[string]string{"password": "too long"}})
	case errors.Is(err, user.ErrEmailExists):
		httpx.WriteJSON(w, http.StatusConflict, httpx.Message{Message: user.ErrEmailExists.Error()})
	default:
		obs.WithTrace(r.Context(), c.log).Error("users handler", zap.String("path", r.URL.Path), zap.Error(err))
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.Message{Message: "internal error"})
	}
}
