// Package api exposes the verification pipeline over HTTP. Route shapes and
// response payloads follow the frontend contract: errors are `{"detail": msg}`
// objects and all user-facing messages are Chinese.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
	"github.com/ZGSQ-QIANG/scholarship/internal/store"
	"github.com/ZGSQ-QIANG/scholarship/internal/usecase/verify"
)

const stepWaiting = "等待验证..."

// allowedExtensions lists the upload formats the rasterizer can handle.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".webp": true,
}

// Pipeline is the verification entry point the handlers drive. Run and
// RunFile are long-running and are dispatched on background goroutines.
type Pipeline interface {
	Begin(ctx context.Context, submissionID string) (domain.Submission, bool, error)
	Run(ctx context.Context, submissionID string)
	BeginFile(ctx context.Context, submissionID, fileID string) (domain.FileRef, error)
	RunFile(ctx context.Context, submissionID, fileID string)
}

// Server owns the HTTP surface.
type Server struct {
	files    *store.FileStore
	records  store.Submissions
	pipeline Pipeline
}

// NewServer wires the handlers and returns the configured engine.
func NewServer(files *store.FileStore, records store.Submissions, pipeline Pipeline) *gin.Engine {
	s := &Server{files: files, records: records, pipeline: pipeline}

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.POST("/upload", s.uploadFile)
		api.POST("/submissions", s.createSubmission)
		api.POST("/submissions/:id/replace-file", s.replaceFile)
		api.GET("/submissions", s.listSubmissions)
		api.POST("/verify/:id", s.startVerification)
		api.POST("/verify/:id/file/:fileID", s.startFileVerification)
		api.GET("/status/:id", s.getStatus)
		api.GET("/results/:id", s.getResults)
	}

	return router
}

// uploadFile accepts one multipart file and stores its bytes in memory.
func (s *Server) uploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "缺少上传文件"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": "不支持的文件格式。支持的格式：.pdf, .png, .jpg, .jpeg, .bmp, .webp",
		})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "读取上传文件失败"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "读取上传文件失败"})
		return
	}

	fileID := s.files.Put(data, header.Filename)

	c.JSON(http.StatusOK, gin.H{
		"file_id":  fileID,
		"filename": header.Filename,
		"message":  "文件上传成功",
	})
}

// createSubmission groups previously uploaded files into one job record.
// The request body is a bare JSON array of file ids.
func (s *Server) createSubmission(c *gin.Context) {
	var fileIDs []string
	if err := c.ShouldBindJSON(&fileIDs); err != nil || len(fileIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "请求体应为文件ID列表"})
		return
	}

	files := make([]domain.FileRef, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		_, filename, err := s.files.Get(fileID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("文件 %s 不存在", fileID)})
			return
		}
		files = append(files, domain.FileRef{FileID: fileID, Filename: filename})
	}

	submissionID := uuid.NewString()
	if _, err := s.records.Create(c.Request.Context(), submissionID, files); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "创建提交失败"})
		return
	}
	_ = s.records.Update(c.Request.Context(), submissionID, store.Partial{
		CurrentStep: store.StringPtr(stepWaiting),
	})

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"file_count":    len(files),
		"message":       "提交创建成功",
	})
}

// startVerification kicks off the whole submission. Re-entry on a submission
// already processing, or completed with results, reports the current state
// instead of restarting.
func (s *Server) startVerification(c *gin.Context) {
	submissionID := c.Param("id")

	sub, started, err := s.pipeline.Begin(c.Request.Context(), submissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("提交 %s 不存在", submissionID)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "启动验证失败"})
		return
	}

	if !started {
		message := "验证已完成"
		if sub.Status == domain.StatusProcessing {
			message = "验证已在进行中"
		}
		c.JSON(http.StatusOK, gin.H{
			"submission_id": submissionID,
			"status":        sub.Status,
			"message":       message,
		})
		return
	}

	// the request context dies with the response; the run gets its own
	go s.pipeline.Run(context.Background(), submissionID)

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        domain.StatusProcessing,
		"message":       "验证已开始",
	})
}

// startFileVerification re-verifies a single file of a submission, merging
// the fresh result over the stored one for that file id.
func (s *Server) startFileVerification(c *gin.Context) {
	submissionID := c.Param("id")
	fileID := c.Param("fileID")

	if !s.files.Has(fileID) {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("文件 %s 不存在", fileID)})
		return
	}

	if _, err := s.pipeline.BeginFile(c.Request.Context(), submissionID, fileID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("提交 %s 不存在", submissionID)})
		case errors.Is(err, verify.ErrFileNotInSubmission):
			c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("文件 %s 不在该提交中", fileID)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "启动验证失败"})
		}
		return
	}

	go s.pipeline.RunFile(context.Background(), submissionID, fileID)

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        domain.StatusProcessing,
		"message":       "文件验证已开始",
	})
}

// getStatus reports progress for a running submission.
func (s *Server) getStatus(c *gin.Context) {
	submissionID := c.Param("id")

	sub, err := s.records.Get(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "验证任务不存在"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        sub.Status,
		"progress":      sub.Progress,
		"current_step":  sub.CurrentStep,
	})
}

// getResults returns the per-file verdicts once the submission completed.
func (s *Server) getResults(c *gin.Context) {
	submissionID := c.Param("id")

	sub, err := s.records.Get(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "验证任务不存在"})
		return
	}

	if sub.Status != domain.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "验证尚未完成"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": submissionID,
		"status":        sub.Status,
		"files":         sub.Results,
	})
}

// listSubmissions returns recent submissions for the history view.
func (s *Server) listSubmissions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	subs, err := s.records.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "查询提交记录失败"})
		return
	}
	if subs == nil {
		subs = []domain.Submission{}
	}

	c.JSON(http.StatusOK, subs)
}

type replaceFileRequest struct {
	OldFileID string `json:"old_file_id" binding:"required"`
	NewFileID string `json:"new_file_id" binding:"required"`
	Filename  string `json:"filename"`
}

// replaceFile swaps one file of a submission for a freshly uploaded one and
// resets the job so it can be re-verified. Results for sibling files are
// kept; only the replaced file's old result is dropped.
func (s *Server) replaceFile(c *gin.Context) {
	submissionID := c.Param("id")

	var req replaceFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "请求参数无效"})
		return
	}

	_, newFilename, err := s.files.Get(req.NewFileID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("文件 %s 不存在", req.NewFileID)})
		return
	}

	sub, err := s.records.Get(c.Request.Context(), submissionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("提交 %s 不存在", submissionID)})
		return
	}

	files := make([]domain.FileRef, len(sub.Files))
	copy(files, sub.Files)
	replaced := false
	for i, f := range files {
		if f.FileID == req.OldFileID {
			filename := req.Filename
			if filename == "" {
				filename = newFilename
			}
			files[i] = domain.FileRef{FileID: req.NewFileID, Filename: filename}
			replaced = true
			break
		}
	}
	if !replaced {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("原文件 %s 不在该提交中", req.OldFileID)})
		return
	}

	kept := make([]domain.FileVerificationResult, 0, len(sub.Results))
	for _, r := range sub.Results {
		if r.FileID != req.OldFileID {
			kept = append(kept, r)
		}
	}

	if err := s.records.Update(c.Request.Context(), submissionID, store.Partial{
		Status:      store.StatusPtr(domain.StatusPending),
		Progress:    store.IntPtr(0),
		CurrentStep: store.StringPtr(stepWaiting),
		Files:       &files,
		Results:     &kept,
		Error:       store.StringPtr(""),
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "文件替换失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "文件替换成功",
		"submission_id": submissionID,
		"files":         files,
	})
}
