package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/attendance"
	"github.com/trezcool/rollcall/services/remote"
)

type attendanceHandler struct {
	store  *store
	logger core.Logger
}

func registerAttendanceAPI(g *echo.Group, st *store, logger core.Logger) {
	h := attendanceHandler{store: st, logger: logger}
	g.POST("/"+remote.EndpointSubmit, h.submit)
	g.POST("/"+remote.EndpointUpdate, h.update)
	g.POST("/"+remote.EndpointGet, h.list)
}

// bindWrite decodes and checks a write request, returning it with its attendance blob.
func bindWrite(ctx echo.Context) (remote.WriteRequest, string, error) {
	var req remote.WriteRequest
	if err := ctx.Bind(&req); err != nil {
		return req, "", err
	}
	if req.AssignmentID == "" || req.TeacherID == "" {
		return req, "", echo.NewHTTPError(http.StatusBadRequest, "assignment_id and teacher_id are required")
	}
	if len(req.Attendance) == 0 {
		return req, "", echo.NewHTTPError(http.StatusBadRequest, "attendance is required")
	}
	for _, e := range req.Attendance {
		if !e.Status.IsValid() {
			return req, "", echo.NewHTTPError(http.StatusBadRequest, "invalid status "+string(e.Status))
		}
	}
	blob, err := attendance.EncodeEntries(req.Attendance)
	if err != nil {
		return req, "", errors.Wrap(err, "encoding attendance")
	}
	return req, blob, nil
}

func (h attendanceHandler) submit(ctx echo.Context) error {
	req, blob, err := bindWrite(ctx)
	if err != nil {
		return err
	}
	rec, ok := h.store.create(req, blob)
	if !ok {
		return errAlreadyExists
	}
	h.logger.Debug("attendance created", map[string]interface{}{"id": rec.ID, "assignment": req.AssignmentID})
	return ctx.JSON(http.StatusCreated, remote.Response{
		Success:    true,
		Message:    "Attendance saved",
		SavedCount: len(req.Attendance),
	})
}

func (h attendanceHandler) update(ctx echo.Context) error {
	req, blob, err := bindWrite(ctx)
	if err != nil {
		return err
	}
	rec, ok := h.store.update(req, blob)
	if !ok {
		return errMissingRecord
	}
	h.logger.Debug("attendance updated", map[string]interface{}{"id": rec.ID, "assignment": req.AssignmentID})
	return ctx.JSON(http.StatusOK, remote.Response{
		Success:    true,
		Message:    "Attendance updated",
		SavedCount: len(req.Attendance),
	})
}

func (h attendanceHandler) list(ctx echo.Context) error {
	var req remote.GetRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if req.TeacherID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "teacher_id is required")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "OK",
		"data":    h.store.list(req),
	})
}
