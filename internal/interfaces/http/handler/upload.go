package handler

import (
	"net/http"
	"path/filepath"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/docchat/backend/internal/application/ingest"
	"github.com/docchat/backend/internal/infrastructure/log"
)

// UploadHandler 文档上传处理器
type UploadHandler struct {
	ingestService *ingest.Service
	logger        *slog.Logger
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(ingestService *ingest.Service) *UploadHandler {
	return &UploadHandler{
		ingestService: ingestService,
		logger:        log.NewModuleLogger("ingest", "upload_handler"),
	}
}

// UploadFiles 接收上传文档并重建索引
// POST /upload-files
// 表单字段 files 可携带多个文件，全部落盘后对文档目录做一次全量摄取
func (h *UploadHandler) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	saved := make([]string, 0, len(files))
	for _, fileHeader := range files {
		src, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		path, err := h.ingestService.SaveUpload(fileHeader.Filename, src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
				"file":  fileHeader.Filename,
			})
			return
		}
		saved = append(saved, filepath.Base(path))
	}

	h.logger.Info("Files uploaded, rebuilding index",
		"count", len(saved),
	)

	// 上传后对整个文档目录做一次全量摄取
	stats, err := h.ingestService.IngestAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"saved": len(saved),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploaded_files":  saved,
		"count":           len(saved),
		"total_documents": stats.TotalDocuments,
		"total_chunks":    stats.TotalChunks,
	})
}
