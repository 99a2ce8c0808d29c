package export

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/zenport/internal/model"
)

// ArticleLister は全記事の取得機能。article.Serviceが満たす。
type ArticleLister interface {
	ListAll(ctx context.Context, query string, limit *int) (*model.ArticlePage, error)
}

// MetricsRecorder はエクスポート実行の記録機能。metrics.Collectorが満たす。
type MetricsRecorder interface {
	RecordExport(target string)
}

// Service は記事エクスポートのビジネスロジック。
// 記事の取得、CSV変換、メール送信を組み合わせる。
type Service struct {
	lister    ArticleLister
	csvWriter *CSVWriter
	mailer    Mailer
	metrics   MetricsRecorder // nil可
	logger    *slog.Logger
	now       func() time.Time // テスト用にオーバーライド可能
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(lister ArticleLister, csvWriter *CSVWriter, mailer Mailer, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		lister:    lister,
		csvWriter: csvWriter,
		mailer:    mailer,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// buildCSV は記事を取得してCSVに変換する。メトリクスは記録しない。
func (s *Service) buildCSV(ctx context.Context, query string, limit *int) (string, []byte, error) {
	page, err := s.lister.ListAll(ctx, query, limit)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := s.csvWriter.Write(&buf, page.Articles); err != nil {
		s.logger.Error("csv generation failed", slog.String("error", err.Error()))
		return "", nil, model.NewExportFailedError("CSVの生成に失敗しました")
	}

	filename := FileName(s.now())
	s.logger.Info("csv export generated",
		slog.String("filename", filename),
		slog.Int("article_count", len(page.Articles)),
	)
	return filename, buf.Bytes(), nil
}

// BuildCSV はCSVダウンロード用に記事をエクスポートし、ファイル名とデータを返す。
func (s *Service) BuildCSV(ctx context.Context, query string, limit *int) (string, []byte, error) {
	filename, data, err := s.buildCSV(ctx, query, limit)
	if err != nil {
		return "", nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordExport("csv")
	}
	return filename, data, nil
}

// SendCSVMail は記事のCSVを添付したメールをtoに送信し、添付ファイル名を返す。
// メール経由のエクスポートはmailとしてのみ計上する。
func (s *Service) SendCSVMail(ctx context.Context, to, query string, limit *int) (string, error) {
	filename, data, err := s.buildCSV(ctx, query, limit)
	if err != nil {
		return "", err
	}

	if err := s.mailer.SendCSV(to, "記事エクスポート "+s.now().Format("2006-01-02"), filename, data); err != nil {
		s.logger.Error("export mail failed",
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return "", model.NewExportFailedError("メールの送信に失敗しました")
	}

	if s.metrics != nil {
		s.metrics.RecordExport("mail")
	}

	s.logger.Info("export mail sent",
		slog.String("to", to),
		slog.String("filename", filename),
	)
	return filename, nil
}
