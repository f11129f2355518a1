// internal/app/features/attendance/attendance.go
package attendance

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/meraki/internal/app/system/apperr"
	"github.com/dalemusser/meraki/internal/app/system/auth"
	"github.com/dalemusser/meraki/internal/app/system/inputval"
	"github.com/dalemusser/meraki/internal/app/system/ledger"
	"github.com/dalemusser/meraki/internal/domain/models"
	"go.uber.org/zap"
)

// Submission types accepted by POST /attendance.
const (
	TypeTimeIn  = "time-in"
	TypeTimeOut = "time-out"
)

// maxBodyBytes bounds the JSON body. Photos arrive base64 encoded, so this
// sits comfortably above the decoded image limit.
const maxBodyBytes = 8 << 20

type submitRequest struct {
	Type  string `json:"type" validate:"required,oneof=time-in time-out"`
	Image string `json:"image"`
}

type listResponse struct {
	Records []models.AttendanceRecord `json:"records"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /attendance                                                              |
| The caller's records, newest first. ?limit= narrows the page (max 50).       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, err := auth.Resolve(r)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	limit := ledger.MaxListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apperr.Write(w, h.Log, apperr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	recs, err := h.Ledger.ListForUser(r.Context(), p.UserID, limit)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, listResponse{Records: recs})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /attendance                                                             |
| {type: "time-in" | "time-out", image?: data URI or base64}                    |
| 201 with the new record on time-in, 200 with the closed record on time-out.  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	p, err := auth.Resolve(r)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	var req submitRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperr.Write(w, h.Log, apperr.Validation("image is too large"))
			return
		}
		apperr.Write(w, h.Log, apperr.Validation("invalid request body"))
		return
	}
	if err := inputval.Struct(req); err != nil {
		apperr.Write(w, h.Log, err)
		return
	}

	ctx := r.Context()
	date := h.Ledger.Today()

	switch req.Type {
	case TypeTimeIn:
		rec, err := h.Ledger.SubmitTimeIn(ctx, p, req.Image)
		h.AuditLog.TimeIn(ctx, r, p.UserID, date, err)
		if err != nil {
			h.logRejected("time-in", p.UserID, err)
			apperr.Write(w, h.Log, err)
			return
		}
		apperr.WriteJSON(w, http.StatusCreated, rec)

	case TypeTimeOut:
		rec, err := h.Ledger.SubmitTimeOut(ctx, p.UserID, req.Image)
		h.AuditLog.TimeOut(ctx, r, p.UserID, date, err)
		if err != nil {
			h.logRejected("time-out", p.UserID, err)
			apperr.Write(w, h.Log, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) logRejected(transition, userID string, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		return // apperr.Write logs these with the cause
	}
	h.Log.Info("attendance submission rejected",
		zap.String("transition", transition),
		zap.String("user_id", userID),
		zap.String("kind", string(kind)))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /attendance/today                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeToday(w http.ResponseWriter, r *http.Request) {
	p, err := auth.Resolve(r)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	st, err := h.Ledger.TodayStatus(r.Context(), p.UserID)
	if err != nil {
		apperr.Write(w, h.Log, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, st)
}
