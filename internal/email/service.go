// internal/email/service.go
package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/sendgrid/sendgrid-go"
	"github.com/taskflowhq/taskflow"
	"github.com/taskflowhq/taskflow/internal/config"
)

var templateFS = taskflow.EmailFS

// Provider identifies supported email transports.
type Provider string

const (
	ProviderSMTP     Provider = "smtp"
	ProviderSendgrid Provider = "sendgrid"

	templateRoot = "templates/emails"
)

// templateNames is the closed set of mails the product sends. Each name maps
// to a directory under templateRoot holding an html.tmpl/plaintext.tmpl pair.
var templateNames = []string{
	"invitation",
}

// EmailData describes one outgoing message.
type EmailData struct {
	To           string
	From         string
	FromName     string
	Subject      string
	TemplateName string
	TemplateData interface{}
}

// Service renders the embedded templates and delivers mail through the
// configured provider.
type Service struct {
	config         *config.Config
	provider       Provider
	sendgridClient *sendgrid.Client
	templates      map[string]*messageTemplate
}

// messageTemplate pairs the HTML body with its plaintext alternative.
type messageTemplate struct {
	html      *template.Template
	plaintext *template.Template
}

func NewEmailService(config *config.Config, provider Provider) (*Service, error) {
	s := &Service{
		config:    config,
		provider:  provider,
		templates: make(map[string]*messageTemplate, len(templateNames)),
	}

	if provider == ProviderSendgrid {
		s.sendgridClient = sendgrid.NewSendClient(config.Sendgrid.APIKey)
	}

	for _, name := range templateNames {
		tmpl, err := loadTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("loading email template %s: %w", name, err)
		}
		s.templates[name] = tmpl
	}

	return s, nil
}

// loadTemplate parses one embedded html/plaintext pair. A missing half is a
// startup error, not a send-time one.
func loadTemplate(name string) (*messageTemplate, error) {
	dir := templateRoot + "/" + name

	html, err := template.ParseFS(templateFS, dir+"/html.tmpl")
	if err != nil {
		return nil, err
	}
	plaintext, err := template.ParseFS(templateFS, dir+"/plaintext.tmpl")
	if err != nil {
		return nil, err
	}

	return &messageTemplate{html: html, plaintext: plaintext}, nil
}

// SendEmail renders the named template and delivers it via the configured
// provider.
func (s *Service) SendEmail(data EmailData) error {
	htmlContent, textContent, err := s.render(data.TemplateName, data.TemplateData)
	if err != nil {
		return err
	}

	switch s.provider {
	case ProviderSendgrid:
		if data.From == "" {
			data.From = s.config.Sendgrid.From
		}
		return s.sendWithSendgrid(data, htmlContent, textContent)
	case ProviderSMTP:
		if data.From == "" {
			return fmt.Errorf("missing sender email address (From)")
		}
		return s.sendWithSMTP(data, htmlContent, textContent)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.provider)
	}
}

func (s *Service) render(name string, data interface{}) (string, string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", "", fmt.Errorf("unknown email template: %s", name)
	}

	var htmlBuf bytes.Buffer
	if err := tmpl.html.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("rendering %s html body: %w", name, err)
	}

	var textBuf bytes.Buffer
	if err := tmpl.plaintext.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("rendering %s plaintext body: %w", name, err)
	}

	return htmlBuf.String(), textBuf.String(), nil
}
