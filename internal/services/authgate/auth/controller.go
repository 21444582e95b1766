package auth

import (
	"net/http"

	"github.com/NordCoder/Authgate/internal/httpx"
	"github.com/NordCoder/Authgate/internal/obs"
	"github.com/NordCoder/Authgate/internal/password"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *credentialsBody) validate() error {
	var v httpx.ValidationError
	if b.Email == "" {
		v.Add("email", "required")
	}
	switch {
	case b.Password == "":
		v.Add("password", "required")
	case len(b.Password) > password.MaxLength:
		v.Add("password", "too long")
	}
	return v.OrNil()
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (b *refreshBody) validate() error {
	var v httpx.ValidationError
	if b.RefreshToken == "" {
		v.Add("refreshToken", "required")
	}
	return v.OrNil()
}

type Controller struct {
	uc  *Usecase
	log *zap.Logger
}

func NewController(uc *Usecase, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{uc: uc, log: log}
}

// Register mounts the /api/auth routes on r.
func (c *Controller) Register(r *mux.Router) {
	s := r.PathPrefix("/api/auth").Subrouter()
	s.HandleFunc("/register", c.register).Methods(http.MethodPost)
	s.HandleFunc("/login", c.login).Methods(http.MethodPost)
	s.HandleFunc("/refresh", c.refresh).Methods(http.MethodPost)
	s.HandleFunc("/logout", c.logout).Methods(http.MethodPost)
	s.Handle("/logout-all", RequireAuth(c.uc)(http.HandlerFunc(c.logoutAll))).Methods(http.MethodPost)
}

func (c *Controller) register(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !c.decode(w, r, &body, body.validate) {
		return
	}
	res, err := c.uc.Register(r.Context(), body.Email, body.Password)
	if err != nil {
		c.internal(w, r, err)
		return
	}
	httpx.WriteJSON(w, statusFor(res.Success, http.StatusBadRequest), res)
}

func (c *Controller) login(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !c.decode(w, r, &body, body.validate) {
		return
	}
	res, err := c.uc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		c.internal(w, r, err)
		return
	}
	httpx.WriteJSON(w, statusFor(res.Success, http.StatusUnauthorized), res)
}

func (c *Controller) refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if !c.decode(w, r, &body, body.validate) {
		return
	}
	res, err := c.uc.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		c.internal(w, r, err)
		return
	}
	httpx.WriteJSON(w, statusFor(res.Success, http.StatusUnauthorized), res)
}

func (c *Controller) logout(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if !c.decode(w, r, &body, body.validate) {
		return
	}
	res, err := c.uc.Logout(r.Context(), body.RefreshToken)
	if err != nil {
		c.internal(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (c *Controller) logoutAll(w http.ResponseWriter, r *http.Request) {
	p, ok := PayloadFromCtx(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, StatusResult{Message: MsgUnauthenticated})
		return
	}
	res, err := c.uc.LogoutAll(r.Context(), p.UserID)
	if err != nil {
		c.internal(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// decode reads the body into dst and runs validate after decoding. It
// writes the 422 itself and reports whether the handler should go on.
func (c *Controller) decode(w http.ResponseWriter, r *http.Request, dst any, validate func() error) bool {
	if err := httpx.Decode(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return false
	}
	if validate == nil {
		return true
	}
	if err := validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (c *Controller) internal(w http.ResponseWriter, r *http.Request, err error) {
	obs.WithTrace(r.Context(), c.log).Error("auth handler", zap.String("path", r.URL.Path), zap.Error(err))
	httpx.WriteJSON(w, http.StatusInternalServerError, httpx.Message{Message: "internal error"})
}

func statusFor(success bool, failure int) int {
	if success {
		return http.StatusOK
	}
	return failure
}
