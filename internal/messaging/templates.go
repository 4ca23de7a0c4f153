package messaging

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const htmlLayout = `<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: {{.Color}}; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 20px; border-radius: 0 0 8px 8px; }
        .footer { margin-top: 20px; font-size: 12px; color: #6b7280; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h2>{{.Heading}}</h2>
        </div>
        <div class="content">
            <p>Hi {{.Name}},</p>
{{range .Paragraphs}}
            <p>{{.}}</p>
{{end}}
            <p>{{.Closing}},<br>
            <strong>{{.SenderName}}</strong></p>
        </div>
        <div class="footer">
            <p>{{.Footer}}</p>
        </div>
    </div>
</body>
</html>
`

const textLayout = `Hi {{.Name}},
{{range .Paragraphs}}
{{.}}
{{end}}
{{.Closing}},
{{.SenderName}}
`

type emailTemplate struct {
	Subject    string
	Color      htmltemplate.CSS
	Heading    string
	Paragraphs []string
	Closing    string
	Footer     string
}

const defaultFooter = "You received this email because you submitted an inquiry on our website."

var followupEmailTemplates = []emailTemplate{
	{
		Subject: "Quick follow-up on your inquiry, %s!",
		Color:   "#2563eb",
		Heading: "Thanks for reaching out!",
		Paragraphs: []string{
			"I noticed you recently submitted an inquiry, and I wanted to personally follow up to see if you have any questions.",
			"I'd love to help you with whatever you need. Feel free to reply to this email or let me know a good time for a quick call.",
			"Looking forward to hearing from you!",
		},
		Closing: "Best regards",
		Footer:  defaultFooter,
	},
	{
		Subject: "Still interested, %s?",
		Color:   "#059669",
		Heading: "Just checking in!",
		Paragraphs: []string{
			"I wanted to follow up on my previous message. I understand you might be busy, but I didn't want you to miss out.",
			"If you're still interested, I'm here to help answer any questions you might have.",
			"Just hit reply and let me know how I can assist!",
		},
		Closing: "Best",
		Footer:  defaultFooter,
	},
	{
		Subject: "Last chance to connect, %s",
		Color:   "#dc2626",
		Heading: "One last follow-up",
		Paragraphs: []string{
			"I've reached out a couple of times and haven't heard back. I completely understand if now isn't the right time.",
			"This will be my last email, but please know that I'm always here if you need anything in the future.",
			"Wishing you all the best!",
		},
		Closing: "Take care",
		Footer:  defaultFooter + " We won't send any more follow-ups.",
	},
}

var followupSMSTemplates = []string{
	"Hi {{.Name}}, just following up on your message. Do you have any questions? Happy to help - {{.SenderName}}",
	"Hi {{.Name}}, checking in - still here if you need anything. - {{.SenderName}}",
	"Hi {{.Name}}, last note from me. Reach out anytime if you'd like to connect. - {{.SenderName}}",
}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("followup_html").Parse(htmlLayout))
	textTmpl = texttemplate.Must(texttemplate.New("followup_text").Parse(textLayout))
	smsTmpls = mustParseSMS(followupSMSTemplates)
)

func mustParseSMS(sources []string) []*texttemplate.Template {
	tmpls := make([]*texttemplate.Template, len(sources))
	for i, src := range sources {
		tmpls[i] = texttemplate.Must(texttemplate.New(fmt.Sprintf("sms_%d", i)).Parse(src))
	}
	return tmpls
}

// Rendered is a template expanded for one lead
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// TemplateIndex clamps a follow-up number to the last available template
func TemplateIndex(number, count int) int {
	if number < 0 {
		return 0
	}
	if number > count-1 {
		return count - 1
	}
	return number
}

type templateData struct {
	emailTemplate
	Name       string
	SenderName string
}

// FollowupEmailTemplate renders the email template for the given follow-up number
func FollowupEmailTemplate(number int, leadName, senderName string) (Rendered, error) {
	tmpl := followupEmailTemplates[TemplateIndex(number, len(followupEmailTemplates))]
	data := templateData{emailTemplate: tmpl, Name: leadName, SenderName: senderName}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render html template: %w", err)
	}
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render text template: %w", err)
	}

	return Rendered{
		Subject: fmt.Sprintf(tmpl.Subject, leadName),
		HTML:    htmlBuf.String(),
		Text:    textBuf.String(),
	}, nil
}

// FollowupSMSTemplate renders the SMS template for the given follow-up number
func FollowupSMSTemplate(number int, leadName, senderName string) (string, error) {
	if strings.TrimSpace(leadName) == "" {
		leadName = "there"
	}
	tmpl := smsTmpls[TemplateIndex(number, len(smsTmpls))]

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct{ Name, SenderName string }{leadName, senderName})
	if err != nil {
		return "", fmt.Errorf("failed to render sms template: %w", err)
	}
	return buf.String(), nil
}
