package export

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// Mailer はCSV添付メールの送信機能のインターフェース。
type Mailer interface {
	// SendCSV はCSVデータをfilename名の添付ファイルとしてtoに送信する。
	SendCSV(to, subject, filename string, csvData []byte) error
}

// SMTPConfig はSMTP送信の設定を保持する。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 空の場合は認証なしで送信する
	Password string
	From     string
}

// SMTPMailer はnet/smtpによるMailerの実装。
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer はSMTPMailerの新しいインスタンスを生成する。
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config}
}

var _ Mailer = (*SMTPMailer)(nil)

// SendCSV はCSVデータを添付したマルチパートメールを送信する。
func (m *SMTPMailer) SendCSV(to, subject, filename string, csvData []byte) error {
	msg := buildMessage(m.config.From, to, subject, filename, csvData, uuid.NewString())

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// buildMessage はCSV添付のMIMEマルチパートメッセージを組み立てる。
// boundaryには衝突しない一意な文字列を渡す。
func buildMessage(from, to, subject, filename string, csvData []byte, boundary string) []byte {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	// 日本語件名を通すため、非ASCIIの場合はRFC 2047のQエンコードで包む
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n", boundary))
	b.WriteString("\r\n")

	// 本文パート
	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("記事のエクスポート結果を添付します。\r\n")
	b.WriteString("\r\n")

	// 添付パート（base64エンコード、76桁折り返し）
	b.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	b.WriteString("Content-Type: text/csv; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", filename))
	b.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString(csvData)
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")

	b.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return []byte(b.String())
}
