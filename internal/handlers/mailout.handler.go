package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/fasthttp/router"

	"github.com/misteraverin/notification-service/internal/model"
	"github.com/misteraverin/notification-service/internal/repository"
	xhttp "github.com/misteraverin/notification-service/pkg/http"
)

type MailoutService interface {
	Create(ctx context.Context, req model.MailoutCreateRequest) (*model.Mailout, error)
	Get(ctx context.Context, id int64) (*model.Mailout, error)
	Update(ctx context.Context, id int64, req model.MailoutCreateRequest) (*model.Mailout, error)
	Delete(ctx context.Context, id int64) error
	EnqueueRun(ctx context.Context, id int64) error
	GeneralStats(ctx context.Context) ([]*model.StatusCount, error)
	MailoutStats(ctx context.Context, id int64, status *model.MessageStatus) ([]*model.StatusCount, error)
	DeleteMessage(ctx context.Context, id int64) error
}

type MailoutHandler struct {
	svc MailoutService
}

func NewMailoutHandler(svc MailoutService) *MailoutHandler {
	return &MailoutHandler{svc: svc}
}

func RegisterMailoutRoutes(e *router.Group, h *MailoutHandler) {
	e.POST("/mailouts", h.CreateMailout)
	e.GET("/mailouts/{id}", h.GetMailout)
	e.PUT("/mailouts/{id}", h.UpdateMailout)
	e.DELETE("/mailouts/{id}", h.DeleteMailout)
	e.POST("/mailouts/{id}/run", h.RunMailout)
	e.GET("/mailouts/{id}/stats", h.MailoutStats)
	e.GET("/stats", h.GeneralStats)
	e.DELETE("/messages/{id}", h.DeleteMessage)
}

type statsResponse struct {
	Items []*model.StatusCount `json:"items"`
}

type runResponse struct {
	MailoutID int64  `json:"mailout_id"`
	Status    string `json:"status"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *MailoutHandler) CreateMailout(ctx *xhttp.RequestCtx) {
	var req model.MailoutCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	m, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, m)
}

func (h *MailoutHandler) GetMailout(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	m, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, m)
}

func (h *MailoutHandler) UpdateMailout(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var req model.MailoutCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	m, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, m)
}

func (h *MailoutHandler) DeleteMailout(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(204)
}

func (h *MailoutHandler) RunMailout(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	if err := h.svc.EnqueueRun(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 202, runResponse{MailoutID: id, Status: "queued"})
}

func (h *MailoutHandler) GeneralStats(ctx *xhttp.RequestCtx) {
	stats, err := h.svc.GeneralStats(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, statsResponse{Items: stats})
}

func (h *MailoutHandler) MailoutStats(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	var status *model.MessageStatus
	if v := query(ctx, "status"); v != "" {
		s := model.MessageStatus(v)
		if !s.Valid() {
			writeError(ctx, 400, "unknown status: "+v)
			return
		}
		status = &s
	}
	stats, err := h.svc.MailoutStats(ctx, id, status)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, statsResponse{Items: stats})
}

func (h *MailoutHandler) DeleteMessage(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid id")
		return
	}
	if err := h.svc.DeleteMessage(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(204)
}

/* --------------------------------- Helpers ----------------------------------- */

func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrEntityNotFound):
		writeError(ctx, 404, err.Error())
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, repository.ErrInvalidStatus):
		writeError(ctx, 400, err.Error())
	default:
		writeError(ctx, 500, err.Error())
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, fmt.Errorf("missing path parameter %q", name)
	}
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}
