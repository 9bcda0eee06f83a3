package invoicedelivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/goliatone/go-invoice/invoice"
)

// EmailMessage describes an outbound email.
type EmailMessage struct {
	From       string
	To         []string
	Cc         []string
	ReplyTo    string
	Subject    string
	Body       string
	Attachment *Attachment
}

// EmailSender delivers email messages.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient abstracts SMTP delivery.
type SMTPClient interface {
	SendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// SMTPMailer sends email via SMTP.
type SMTPMailer struct {
	Addr   string
	Auth   smtp.Auth
	From   string
	Client SMTPClient
	Now    func() time.Time
}

// Send delivers the message via SMTP.
func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	if m == nil {
		return invoice.NewError(invoice.KindInternal, "mailer is nil", nil)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(m.From)
	}
	if from == "" {
		return invoice.NewError(invoice.KindValidation, "email from is required", nil)
	}
	if len(msg.To) == 0 && len(msg.Cc) == 0 {
		return invoice.NewError(invoice.KindValidation, "email recipients are required", nil)
	}

	payload, err := composeEmail(msg, from, nowOr(m.Now))
	if err != nil {
		return invoice.NewError(invoice.KindInternal, "compose email", err)
	}

	client := m.Client
	if client == nil {
		client = smtpClient{}
	}
	recipients := append(append([]string{}, msg.To...), msg.Cc...)
	if err := client.SendMail(m.Addr, m.Auth, from, recipients, payload); err != nil {
		return invoice.NewError(invoice.KindExternal, "smtp send failed", err)
	}
	return nil
}

func composeEmail(msg EmailMessage, from string, now time.Time) ([]byte, error) {
	headers := textproto.MIMEHeader{}
	setHeader(headers, "From", from)
	setHeader(headers, "To", strings.Join(msg.To, ", "))
	setHeader(headers, "Cc", strings.Join(msg.Cc, ", "))
	setHeader(headers, "Reply-To", msg.ReplyTo)
	setHeader(headers, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	setHeader(headers, "Date", now.Format(time.RFC1123Z))
	setHeader(headers, "MIME-Version", "1.0")

	var buf bytes.Buffer
	if msg.Attachment == nil {
		setHeader(headers, "Content-Type", "text/plain; charset=utf-8")
		setHeader(headers, "Content-Transfer-Encoding", "8bit")
		writeHeaders(&buf, headers)
		buf.WriteString(msg.Body)
		buf.WriteString("\r\n")
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	setHeader(headers, "Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": writer.Boundary()}))
	writeHeaders(&buf, headers)

	text, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(text, msg.Body); err != nil {
		return nil, err
	}

	contentType := msg.Attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	file, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": msg.Attachment.Filename})},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64Lines(file, msg.Attachment.Data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

var headerOrder = []string{"From", "To", "Cc", "Reply-To", "Subject", "Date", "MIME-Version", "Content-Type", "Content-Transfer-Encoding"}

func setHeader(headers textproto.MIMEHeader, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		headers.Set(key, value)
	}
}

func writeHeaders(buf *bytes.Buffer, headers textproto.MIMEHeader) {
	for _, key := range headerOrder {
		if value := headers.Get(key); value != "" {
			fmt.Fprintf(buf, "%s: %s\r\n", key, value)
		}
	}
	buf.WriteString("\r\n")
}

// writeBase64Lines wraps base64 output at 76 columns.
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(76, len(encoded))
		if _, err := io.WriteString(w, encoded[:n]+"\r\n"); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

type smtpClient struct{}

func (smtpClient) SendMail(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	return smtp.SendMail(addr, auth, from, to, msg)
}

// EmailChannel sends the artifact as an attachment. Artifacts over the
// attachment limit are sent as a link when a Publisher store is set.
type EmailChannel struct {
	Sender            EmailSender
	Publisher         Publisher
	From              string
	Subject           string
	Label             string
	MaxAttachmentSize int64
}

func (c EmailChannel) Option() invoice.ShareOption {
	return invoice.ShareOption{ID: OptionEmail, Label: labelOr(c.Label, "Email")}
}

func (c EmailChannel) Deliver(ctx context.Context, artifact invoice.ExportArtifact, target invoice.ShareTarget) (invoice.ShareResult, error) {
	if c.Sender == nil {
		return invoice.ShareResult{}, invoice.NewError(invoice.KindNotImpl, "email sender not configured", nil)
	}
	if err := checkRecipients(target.Recipients); err != nil {
		return invoice.ShareResult{}, err
	}

	subject := c.Subject
	if subject == "" {
		subject = "Invoice " + strings.TrimSuffix(artifact.Filename, "."+artifact.Kind.Extension())
	}
	body := target.Message
	if body == "" {
		body = "Please find your invoice attached."
	}

	msg := EmailMessage{From: c.From, To: target.Recipients, Subject: subject, Body: body}
	result := invoice.ShareResult{Success: true}
	if withinLimit(artifact.Size(), c.MaxAttachmentSize) {
		msg.Attachment = attachmentFor(artifact)
	} else {
		link, err := c.Publisher.Publish(ctx, artifact, false)
		if err != nil {
			return invoice.ShareResult{}, invoice.NewError(invoice.KindValidation, "invoice too large to attach", err)
		}
		msg.Body = body + "\r\n\r\n" + link.URL
		result.URL = link.URL
	}

	if err := c.Sender.Send(ctx, msg); err != nil {
		return invoice.ShareResult{}, err
	}
	result.Message = fmt.Sprintf("sent to %d recipient(s)", len(target.Recipients))
	return result, nil
}
