package httpapi

import (
	"net/http"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
)

type loginRequest struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string     `json:"access_token"`
	User        *user.User `json:"user"`
}

func (d *Deps) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	token, err := d.Accounts.Login(r.Context(), req.TenantID, req.Email, req.Password)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	u, err := d.Accounts.Users.GetByEmail(r.Context(), req.TenantID, req.Email)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, loginResponse{AccessToken: token, User: u})
}

func (d *Deps) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.Principal(r.Context())
	if !ok {
		d.writeErr(w, apperrors.Unauthorized("not authenticated"))
		return
	}
	u, err := d.Accounts.Me(r.Context(), p)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, u)
}

type createTenantWithAdminRequest struct {
	TenantName    string `json:"tenant_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

func (d *Deps) handleCreateTenantWithAdmin(w http.ResponseWriter, r *http.Request) {
	var req createTenantWithAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	tn, admin, err := d.Accounts.CreateTenantWithAdmin(r.Context(), req.TenantName, req.AdminEmail, req.AdminPassword)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]interface{}{"tenant": tn, "admin": admin})
}

type createUserRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     user.Role `json:"role"`
}

func (d *Deps) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.Principal(r.Context())
	if !ok {
		d.writeErr(w, apperrors.Unauthorized("not authenticated"))
		return
	}
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	u, err := d.Accounts.CreateUser(r.Context(), p.TenantID, req.Email, req.Password, req.Role)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusCreated, u)
}
