package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/zenport/internal/model"
)

// Sanitizer は記事本文のサニタイズ機能。security.ArticleSanitizerServiceを満たす。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// csvHeader はCSVの1行目に出力されるカラム名。
var csvHeader = []string{"id", "title", "body", "html_url", "updated_at"}

// CSVWriter は記事一覧をCSVに変換する。
// 本文はサニタイズ後にプレーンテキストへ変換して出力する。
type CSVWriter struct {
	sanitizer Sanitizer
}

// NewCSVWriter はCSVWriterの新しいインスタンスを生成する。
// sanitizerがnilの場合は本文をサニタイズせずテキスト変換のみ行う。
func NewCSVWriter(sanitizer Sanitizer) *CSVWriter {
	return &CSVWriter{sanitizer: sanitizer}
}

// Write は記事一覧をCSVとしてwに書き込む。
// 1行目はヘッダー、以降は記事ごとに1行。記事0件の場合はヘッダーのみ出力する。
func (cw *CSVWriter) Write(w io.Writer, articles []model.Article) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, article := range articles {
		body := article.Body()
		if cw.sanitizer != nil {
			body = cw.sanitizer.Sanitize(body)
		}

		record := []string{
			article.ID(),
			article.Title(),
			HTMLToText(body),
			article.HTMLURL(),
			article.UpdatedAt(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// FileName はエクスポートファイル名を生成する。
// 日付と一意なIDを含み、ダウンロードとメール添付の両方で使用される。
func FileName(now time.Time) string {
	return fmt.Sprintf("articles_%s_%s.csv", now.Format("20060102"), uuid.NewString()[:8])
}
