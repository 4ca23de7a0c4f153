package messaging

import (
	"fmt"
	"html"
	"strings"
)

// PlainToHTML wraps each blank-line separated paragraph in an escaped <p>
func PlainToHTML(text string) string {
	if text == "" {
		return "<p></p>"
	}
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(para))
		b.WriteString("</p>")
	}
	return b.String()
}

// AppendSignature adds the tenant's signature block to both bodies.
// In HTML it goes before </body> when the document has one.
func AppendSignature(htmlBody, textBody, signature string) (string, string) {
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return htmlBody, textBody
	}

	textBody = strings.TrimRight(textBody, " \t\r\n") + "\n\n" + sig

	sigHTML := strings.ReplaceAll(html.EscapeString(sig), "\n", "<br>")
	block := "<p style='margin-top:1em;white-space:pre-wrap;font-size:14px;'>" + sigHTML + "</p>"
	if strings.Contains(htmlBody, "</body>") {
		htmlBody = strings.Replace(htmlBody, "</body>", block+"</body>", 1)
	} else {
		htmlBody = strings.TrimRight(htmlBody, " \t\r\n") + block
	}
	return htmlBody, textBody
}

// AutoreplyBodies lays out the instant reply greeting, body and sign-off
func AutoreplyBodies(leadName, body, senderName string) (string, string) {
	htmlBody := fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>Best regards,<br><strong>%s</strong></p>",
		html.EscapeString(leadName), html.EscapeString(body), html.EscapeString(senderName))
	textBody := fmt.Sprintf("Hi %s,\n\n%s\n\nBest regards,\n%s", leadName, body, senderName)
	return htmlBody, textBody
}
