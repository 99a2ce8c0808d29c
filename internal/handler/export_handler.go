package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/hitoshi/zenport/internal/model"
)

// ExportServiceInterface はエクスポートハンドラーが必要とするサービスインターフェース。
type ExportServiceInterface interface {
	// BuildCSV は記事一覧をCSVに変換し、ファイル名とデータを返す。
	BuildCSV(ctx context.Context, query string, limit *int) (string, []byte, error)
	// SendCSVMail はCSVを添付したメールを送信し、添付ファイル名を返す。
	SendCSVMail(ctx context.Context, to, query string, limit *int) (string, error)
}

// ExportHandler は記事エクスポートのHTTPハンドラー。
type ExportHandler struct {
	service ExportServiceInterface
}

// NewExportHandler はExportHandlerを生成する。
func NewExportHandler(service ExportServiceInterface) *ExportHandler {
	return &ExportHandler{service: service}
}

// exportMailRequest はメールエクスポートリクエストのボディ。
type exportMailRequest struct {
	To    string `json:"to"`
	Query string `json:"query"`
	Limit *int   `json:"limit"`
}

// DownloadCSV は記事一覧をCSVファイルとしてダウンロードさせる。
// GET /api/export/csv?query=&limit=
func (h *ExportHandler) DownloadCSV(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
		return
	}

	filename, data, err := h.service.BuildCSV(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// SendMail は記事一覧のCSVをメールで送信する。
// POST /api/export/mail
func (h *ExportHandler) SendMail(w http.ResponseWriter, r *http.Request) {
	var req exportMailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if _, err := mail.ParseAddress(req.To); err != nil {
		handleServiceError(w, model.NewInvalidExportTargetError())
		return
	}

	filename, err := h.service.SendCSVMail(r.Context(), req.To, req.Query, req.Limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"to":       req.To,
		"filename": filename,
		"status":   "sent",
	})
}
