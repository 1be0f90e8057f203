package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gosimple/slug"
	"github.com/labstack/echo/v4"

	"github.com/locvowork/excelstream/internal/logger"
	"github.com/locvowork/excelstream/internal/repository"
	"github.com/locvowork/excelstream/internal/service"
	"github.com/locvowork/excelstream/internal/service/serviceutils"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxUploadBytes  = 32 << 20
)

type ExportHandler struct {
	svc service.ExportService
}

func NewExportHandler(svc service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// attachment delays the download headers until the first byte of the
// workbook, so failures before that can still be answered with JSON.
type attachment struct {
	c        echo.Context
	filename string
	started  bool
}

func newAttachment(c echo.Context, name string) *attachment {
	base := slug.Make(name)
	if base == "" {
		base = "export"
	}
	return &attachment{c: c, filename: base + ".xlsx"}
}

func (a *attachment) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		h := a.c.Response().Header()
		h.Set(echo.HeaderContentType, xlsxContentType)
		h.Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, a.filename))
		a.c.Response().WriteHeader(http.StatusOK)
	}
	return a.c.Response().Write(p)
}

// finish answers err as JSON unless the workbook is already on the wire.
func (h *ExportHandler) finish(c echo.Context, a *attachment, err error) error {
	if err == nil {
		return nil
	}
	ctx := c.Request().Context()
	if a.started {
		// Headers are gone, all that is left is to cut the stream.
		logger.ErrorLog(ctx, "export %s failed mid-stream: %v", a.filename, err)
		return nil
	}
	logger.ErrorLog(ctx, "export %s failed: %v", a.filename, err)
	return serviceutils.ResponseError(c, statusOf(err), "Failed to generate Excel file", err)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrUnknownReport):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", service.ErrInvalidRequest, name)
	}
	return n, nil
}

// DemoHandler handles GET /export/demo?rows=N
func (h *ExportHandler) DemoHandler(c echo.Context) error {
	a := newAttachment(c, "payroll demo")
	rows, err := intParam(c, "rows", 1000)
	if err != nil {
		return h.finish(c, a, err)
	}
	return h.finish(c, a, h.svc.ExportDemo(c.Request().Context(), a, rows))
}

// TemplateHandler handles POST /export/template
func (h *ExportHandler) TemplateHandler(c echo.Context) error {
	var req service.TemplateRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	name := req.Name
	if name == "" {
		name = "report"
	}
	a := newAttachment(c, name)
	return h.finish(c, a, h.svc.ExportTemplate(c.Request().Context(), a, req))
}

// ReportsHandler handles GET /export/sql
func (h *ExportHandler) ReportsHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Available reports", h.svc.Reports())
}

// QueryHandler handles GET /export/sql/:report, binding query parameters to
// the report parameters.
func (h *ExportHandler) QueryHandler(c echo.Context) error {
	report := c.Param("report")
	params := make(map[string]string)
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	a := newAttachment(c, report)
	return h.finish(c, a, h.svc.ExportQuery(c.Request().Context(), a, report, params))
}

// SearchHandler handles GET /export/search/:index?q=...
func (h *ExportHandler) SearchHandler(c echo.Context) error {
	index := c.Param("index")
	a := newAttachment(c, index)
	return h.finish(c, a, h.svc.ExportSearch(c.Request().Context(), a, index, c.QueryParam("q")))
}

// DatastoreHandler handles GET /export/datastore/:kind?limit=N
func (h *ExportHandler) DatastoreHandler(c echo.Context) error {
	kind := c.Param("kind")
	a := newAttachment(c, kind)
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		return h.finish(c, a, err)
	}
	return h.finish(c, a, h.svc.ExportDatastore(c.Request().Context(), a, kind, limit))
}

// ImportHandler handles POST /import/:sheet with the workbook in the "file"
// form field. "_" selects the first sheet; ?kind= stores the rows.
func (h *ExportHandler) ImportHandler(c echo.Context) error {
	ctx := c.Request().Context()
	fh, err := c.FormFile("file")
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing file", err)
	}
	if fh.Size > maxUploadBytes {
		return serviceutils.ResponseError(c, http.StatusRequestEntityTooLarge, "File too large", nil)
	}
	f, err := fh.Open()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Unreadable file", err)
	}
	defer f.Close()

	headerRow, err := intParam(c, "header_row", 0)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid header_row", err)
	}
	sheet := c.Param("sheet")
	if sheet == "_" {
		sheet = ""
	}
	res, err := h.svc.Import(ctx, f, service.ImportRequest{
		Sheet:     sheet,
		HeaderRow: headerRow,
		Kind:      c.QueryParam("kind"),
		KeyField:  c.QueryParam("key"),
	})
	if err != nil {
		logger.ErrorLog(ctx, "import %s failed: %v", fh.Filename, err)
		return serviceutils.ResponseError(c, statusOf(err), "Failed to import sheet", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Sheet imported", res)
}
