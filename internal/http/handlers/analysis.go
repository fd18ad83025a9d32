package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bizplan-backend/internal/domain/analysis"
	"github.com/yungbote/bizplan-backend/internal/http/response"
	"github.com/yungbote/bizplan-backend/internal/modules/analysis/pipeline"
	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

const (
	defaultMaxUploadBytes = 64 << 20
	multipartMemory       = 32 << 20
)

type AnalysisRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

type AnalysisHandler struct {
	log            *logger.Logger
	runner         AnalysisRunner
	maxUploadBytes int64
}

func NewAnalysisHandler(log *logger.Logger, runner AnalysisRunner, maxUploadBytes int64) *AnalysisHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &AnalysisHandler{
		log:            log.With("handler", "AnalysisHandler"),
		runner:         runner,
		maxUploadBytes: maxUploadBytes,
	}
}

type analysisFileReq struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Folder   int    `json:"folder"`
}

type runAnalysisReq struct {
	ProjectIdx int64             `json:"project_idx"`
	UserID     string            `json:"user_id"`
	Files      []analysisFileReq `json:"files"`
}

// POST /api/analysis/run
//
// Accepts multipart uploads (files[], folders[], user_id, project_idx) or a
// JSON body whose files carry local or gs:// paths.
func (h *AnalysisHandler) Run(c *gin.Context) {
	var (
		req pipeline.Request
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = h.decodeMultipart(c)
	} else {
		req, err = decodeAnalysisJSON(c)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("analysis run failed", "project_idx", req.ProjectIdx, "error", err)
		response.Error(c, err)
		return
	}
	response.RespondOK(c, resp)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apierr.ErrInvalidArgument)
}

func decodeAnalysisJSON(c *gin.Context) (pipeline.Request, error) {
	var body runAnalysisReq
	if err := c.ShouldBindJSON(&body); err != nil {
		return pipeline.Request{}, invalid("decode request: %v", err)
	}
	if body.ProjectIdx <= 0 {
		return pipeline.Request{}, invalid("project_idx is required")
	}
	req := pipeline.Request{ProjectIdx: body.ProjectIdx, UserID: strings.TrimSpace(body.UserID)}
	for i, f := range body.Files {
		if strings.TrimSpace(f.Path) == "" {
			return pipeline.Request{}, invalid("files[%d].path is required", i)
		}
		req.Files = append(req.Files, analysis.InputFile{
			Path:     strings.TrimSpace(f.Path),
			Filename: strings.TrimSpace(f.Filename),
			Folder:   f.Folder,
		})
	}
	return req, nil
}

func (h *AnalysisHandler) decodeMultipart(c *gin.Context) (pipeline.Request, error) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return pipeline.Request{}, invalid("invalid multipart form: %v", err)
	}
	form := c.Request.MultipartForm
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	projectIdx, err := strconv.ParseInt(value("project_idx"), 10, 64)
	if err != nil || projectIdx <= 0 {
		return pipeline.Request{}, invalid("project_idx is required")
	}
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	folders := form.Value["folders[]"]
	if len(folders) == 0 {
		folders = form.Value["folders"]
	}
	if len(folders) > 0 && len(folders) != len(headers) {
		return pipeline.Request{}, invalid("got %d folders for %d files", len(folders), len(headers))
	}

	req := pipeline.Request{ProjectIdx: projectIdx, UserID: value("user_id")}
	for i, fh := range headers {
		folder := 0
		if len(folders) > 0 {
			folder, err = strconv.Atoi(strings.TrimSpace(folders[i]))
			if err != nil {
				return pipeline.Request{}, invalid("folders[%d] is not a number", i)
			}
		}
		raw, err := h.readUpload(fh)
		if err != nil {
			return pipeline.Request{}, err
		}
		req.Files = append(req.Files, analysis.InputFile{Bytes: raw, Filename: fh.Filename, Folder: folder})
	}
	return req, nil
}

func (h *AnalysisHandler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxUploadBytes {
		return nil, invalid("file %q exceeds %d bytes", fh.Filename, h.maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	if int64(len(raw)) > h.maxUploadBytes {
		return nil, invalid("file %q exceeds %d bytes", fh.Filename, h.maxUploadBytes)
	}
	return raw, nil
}
