// internal/app/features/profile/profile.go
package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/meraki/internal/app/store/users"
	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/app/system/inputval"
	"github.com/dalemusser/meraki/internal/app/system/normalize"
	"github.com/dalemusser/meraki/internal/domain/models"
)

// updateRequest is the body of PUT /profile. Position is deliberately absent:
// it gates elevated access and cannot be self-assigned.
type updateRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Department string `json:"department" validate:"max=100"`
}

// profileResponse is the caller's user with defaults applied.
type profileResponse struct {
	models.User
	Department string `json:"department"`
	Position   string `json:"position"`
	ColorKey   string `json:"color"`
}

func newProfileResponse(u models.User) profileResponse {
	resp := profileResponse{User: u, Department: u.Department, Position: u.Position, ColorKey: u.ColorKey}
	if resp.Department == "" {
		resp.Department = models.DefaultDepartment
	}
	if resp.Position == "" {
		resp.Position = models.DefaultPosition
	}
	if resp.ColorKey == "" {
		resp.ColorKey = models.ColorFor(u.Position, u.Department)
	}
	return resp
}

func (h *Handler) currentUser(r *http.Request) (*models.User, error) {
	p, err := auth.Resolve(r)
	if err != nil {
		return nil, err
	}
	u, err := h.Users.GetByHexID(r.Context(), p.UserID)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load profile", err)
	}
	return u, nil
}

// ServeProfile handles GET /profile.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, newProfileResponse(*u))
}

// HandleUpdate handles PUT /profile {name, department}. The color key is
// recomputed from the stored position and the new department.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, err := h.currentUser(r)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	var req updateRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperr.Write(w, h.Log, apperr.Validation("invalid request body"))
		return
	}
	req.Name = normalize.Name(req.Name)
	req.Department = normalize.Department(req.Department)
	if err := inputval.Struct(req); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	if req.Department == "" {
		req.Department = models.DefaultDepartment
	}

	updated, err := h.Users.UpdateProfile(r.Context(), u.ID, userstore.ProfileUpdate{
		Name:       req.Name,
		Department: req.Department,
		ColorKey:   models.ColorFor(u.Position, req.Department),
	})
	if errors.Is(err, userstore.ErrNotFound) {
		apperr.Write(w, h.Log, apperr.New(apperr.NotFound, "user not found"))
		return
	}
	if err != nil {
		apperr.Write(w, h.Log, apperr.Wrap(apperr.Internal, "failed to update profile", err))
		return
	}

	h.AuditLog.ProfileUpdated(r.Context(), r, u.ID, "name", "department")
	apperr.WriteJSON(w, http.StatusOK, newProfileResponse(updated))
}
