package upload

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Julian1897/smart-data-qa/internal/ingest"
	"github.com/Julian1897/smart-data-qa/internal/model/dataset"
	sessionService "github.com/Julian1897/smart-data-qa/internal/service/session"
	"github.com/Julian1897/smart-data-qa/pkg/utils"
)

const sampleRows = 3

// Handler 负责数据文件上传并创建会话。
type Handler struct {
	registry *sessionService.Registry
	maxBytes int64
}

// New 创建上传处理器。
func New(registry *sessionService.Registry, maxBytes int64) *Handler {
	return &Handler{registry: registry, maxBytes: maxBytes}
}

// RegisterRoutes 注册上传路由。
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "文件大小超过上传限制")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "file form field is required")
		return
	}
	defer file.Close()

	if !ingest.SupportedFile(header.Filename) {
		utils.RespondError(w, http.StatusBadRequest, "不支持的文件格式，请上传 CSV 或 TSV 文件")
		return
	}

	table, err := ingest.Parse(file, header.Filename)
	if err != nil {
		utils.RespondDomainError(w, err)
		return
	}

	session, _, err := h.registry.Create(r.Context(), table)
	if err != nil {
		log.Printf("[upload] create session failed: %v", err)
		utils.RespondDomainError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"data_info": map[string]any{
			"file_name":   session.FileName,
			"columns":     table.ColumnNames(),
			"row_count":   session.RowCount,
			"sample_data": sampleData(table),
		},
	})
}

// sampleData 返回前几行数据供前端预览。
func sampleData(table *dataset.Table) []map[string]string {
	n := sampleRows
	if n > table.RowCount() {
		n = table.RowCount()
	}

	samples := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		row := make(map[string]string, len(table.Columns))
		for j, col := range table.Columns {
			row[col.Name] = table.Rows[i][j]
		}
		samples = append(samples, row)
	}
	return samples
}
