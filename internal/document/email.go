package document

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// PortalInvite is the data of a client portal invitation email.
type PortalInvite struct {
	ClientName  string
	SenderName  string
	ReportTitle string
	URL         string
	ExpiresAt   time.Time
}

var portalInviteTemplate = template.Must(template.New("portal").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<body>
<p>Hi {{.ClientName}},</p>
<p>{{.SenderName}} has shared the report <strong>{{.ReportTitle}}</strong> with you.</p>
<p><a href="{{.URL}}">View the report</a></p>
<p>This link expires on {{date .ExpiresAt}}.</p>
</body>
</html>
`))

// RenderPortalInvite returns the subject, HTML and plain-text bodies of a
// portal invitation email.
func RenderPortalInvite(in PortalInvite) (subject, html, text string, err error) {
	var buf bytes.Buffer
	if err := portalInviteTemplate.Execute(&buf, in); err != nil {
		return "", "", "", fmt.Errorf("render portal invite: %w", err)
	}
	subject = fmt.Sprintf("%s shared a report with you", in.SenderName)
	text = fmt.Sprintf("Hi %s,\n\n%s has shared the report %q with you.\n\nView it at %s\n\nThis link expires on %s.\n",
		in.ClientName, in.SenderName, in.ReportTitle, in.URL, in.ExpiresAt.Format("2 Jan 2006"))
	return subject, buf.String(), text, nil
}
