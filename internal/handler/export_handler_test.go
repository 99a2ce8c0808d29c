package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/zenport/internal/model"
)

// mockExportService はExportServiceInterfaceのモック。
type mockExportService struct {
	buildFunc func(ctx context.Context, query string, limit *int) (string, []byte, error)
	sendFunc  func(ctx context.Context, to, query string, limit *int) (string, error)
}

func (m *mockExportService) BuildCSV(ctx context.Context, query string, limit *int) (string, []byte, error) {
	return m.buildFunc(ctx, query, limit)
}

func (m *mockExportService) SendCSVMail(ctx context.Context, to, query string, limit *int) (string, error) {
	return m.sendFunc(ctx, to, query, limit)
}

// TestDownloadCSV_Success はCSVダウンロードのヘッダーとボディを検証する。
func TestDownloadCSV_Success(t *testing.T) {
	csvData := []byte("id,title\n1001,記事A\n")
	var gotQuery string
	var gotLimit *int
	service := &mockExportService{
		buildFunc: func(ctx context.Context, query string, limit *int) (string, []byte, error) {
			gotQuery, gotLimit = query, limit
			return "articles_20260715_abc123.csv", csvData, nil
		},
	}
	h := NewExportHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/export/csv?query=設定&limit=20", nil)
	w := httptest.NewRecorder()
	h.DownloadCSV(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="articles_20260715_abc123.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.String() != string(csvData) {
		t.Errorf("body = %q", w.Body.String())
	}
	if gotQuery != "設定" {
		t.Errorf("query = %q, want 設定", gotQuery)
	}
	if gotLimit == nil || *gotLimit != 20 {
		t.Errorf("limit = %v, want 20", gotLimit)
	}
}

// TestDownloadCSV_InvalidLimit は数値でないlimitで400が返ることを検証する。
func TestDownloadCSV_InvalidLimit(t *testing.T) {
	service := &mockExportService{
		buildFunc: func(ctx context.Context, query string, limit *int) (string, []byte, error) {
			t.Error("service should not be called")
			return "", nil, nil
		},
	}
	h := NewExportHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/export/csv?limit=xyz", nil)
	w := httptest.NewRecorder()
	h.DownloadCSV(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// TestDownloadCSV_FetchFailure は記事取得失敗で502が返ることを検証する。
func TestDownloadCSV_FetchFailure(t *testing.T) {
	service := &mockExportService{
		buildFunc: func(ctx context.Context, query string, limit *int) (string, []byte, error) {
			return "", nil, model.NewFetchFailedError("status 503")
		},
	}
	h := NewExportHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/export/csv", nil)
	w := httptest.NewRecorder()
	h.DownloadCSV(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

// TestSendMail_Success はメール送信成功の応答を検証する。
func TestSendMail_Success(t *testing.T) {
	var gotTo, gotQuery string
	var gotLimit *int
	service := &mockExportService{
		sendFunc: func(ctx context.Context, to, query string, limit *int) (string, error) {
			gotTo, gotQuery, gotLimit = to, query, limit
			return "articles_20260715_abc123.csv", nil
		},
	}
	h := NewExportHandler(service)

	reqBody := `{"to":"user@example.com","query":"設定","limit":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/export/mail", strings.NewReader(reqBody))
	w := httptest.NewRecorder()
	h.SendMail(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if gotTo != "user@example.com" || gotQuery != "設定" {
		t.Errorf("forwarded = (%q, %q)", gotTo, gotQuery)
	}
	if gotLimit == nil || *gotLimit != 10 {
		t.Errorf("limit = %v, want 10", gotLimit)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	if resp["status"] != "sent" {
		t.Errorf("status = %q, want sent", resp["status"])
	}
	if resp["filename"] != "articles_20260715_abc123.csv" {
		t.Errorf("filename = %q", resp["filename"])
	}
}

// TestSendMail_InvalidAddress は不正な宛先で400 INVALID_EXPORT_TARGETが返ることを検証する。
func TestSendMail_InvalidAddress(t *testing.T) {
	tests := []struct {
		name string
		to   string
	}{
		{"空の宛先", ""},
		{"アドレス形式でない", "not-an-address"},
		{"ドメインなし", "user@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockExportService{
				sendFunc: func(ctx context.Context, to, query string, limit *int) (string, error) {
					t.Error("service should not be called")
					return "", nil
				},
			}
			h := NewExportHandler(service)

			reqBody := `{"to":"` + tt.to + `"}`
			req := httptest.NewRequest(http.MethodPost, "/api/export/mail", strings.NewReader(reqBody))
			w := httptest.NewRecorder()
			h.SendMail(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to parse response body: %v", err)
			}
			if body["code"] != model.ErrCodeInvalidExportTarget {
				t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidExportTarget)
			}
		})
	}
}

// TestSendMail_ExportFailure は送信失敗で500が返ることを検証する。
func TestSendMail_ExportFailure(t *testing.T) {
	service := &mockExportService{
		sendFunc: func(ctx context.Context, to, query string, limit *int) (string, error) {
			return "", model.NewExportFailedError("smtp unreachable")
		},
	}
	h := NewExportHandler(service)

	reqBody := `{"to":"user@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/export/mail", strings.NewReader(reqBody))
	w := httptest.NewRecorder()
	h.SendMail(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
