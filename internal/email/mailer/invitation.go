// internal/email/mailer/invitation.go
package mailer

import "github.com/taskflowhq/taskflow/internal/email"

// InvitationTemplateData contains data for the invitation email template
type InvitationTemplateData struct {
	InviterName      string
	OrganizationName string
	Role             string
	AcceptLink       string
}

// SendInvitationEmail sends an organization invitation to the given address
func SendInvitationEmail(s *email.Service, to, inviterName, orgName, role, acceptLink string) error {
	templateData := InvitationTemplateData{
		InviterName:      inviterName,
		OrganizationName: orgName,
		Role:             role,
		AcceptLink:       acceptLink,
	}

	emailData := email.EmailData{
		To:           to,
		FromName:     "TaskFlow",
		Subject:      "You have been invited to " + orgName + " on TaskFlow",
		TemplateName: "invitation",
		TemplateData: templateData,
	}

	return s.SendEmail(emailData)
}
