package notify

import (
	"bytes"
	"html/template"
	"strings"
)

// message is the channel-neutral shape every template produces. The plain
// body and the branded HTML are both derived from it.
type message struct {
	subject  string
	greeting string
	intro    []string
	details  *details
	action   *action
	notes    []string
	bullets  *bullets
	// sms replaces the default "subject\n\nbody" text message when set.
	sms string
}

type details struct {
	Title string
	Rows  []row
}

type row struct {
	Label string
	Value string
}

type action struct {
	Lead  string
	Label string
	URL   string
}

type bullets struct {
	Title string
	Items []string
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f5f5f5;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;line-height:1.6;color:#333;">
<div style="max-width:600px;margin:0 auto;background-color:#ffffff;">
<div style="background-color:#2c3e50;color:#ffffff;padding:30px 20px;text-align:center;">
<h1 style="margin:0;font-size:24px;font-weight:600;">{{.Practice}}</h1>
</div>
<div style="padding:40px 30px;">
{{- with .Greeting}}
<p>{{.}}</p>
{{- end}}
{{- range .Intro}}
<p>{{.}}</p>
{{- end}}
{{- with .Details}}
<div style="background-color:#f8f9fa;border-left:4px solid #2c3e50;padding:15px;margin:20px 0;">
<strong>{{.Title}}</strong>
{{- range .Rows}}<br>{{.Label}}: {{.Value}}{{end}}
</div>
{{- end}}
{{- with .Action}}
<div style="text-align:center;margin:12px 0 24px 0;">
<a href="{{.URL}}" style="display:inline-block;padding:12px 28px;background-color:#00b4a6;color:#ffffff;text-decoration:none;border-radius:6px;font-weight:600;">{{.Label}}</a>
</div>
<p style="font-size:13px;color:#666;word-break:break-all;">{{.URL}}</p>
{{- end}}
{{- range .Notes}}
<p>{{.}}</p>
{{- end}}
{{- with .Bullets}}
<p><strong>{{.Title}}</strong></p>
<ul>
{{- range .Items}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
<p>Best regards,<br>{{.Practice}}</p>
{{- if or .Phone .Email .Website}}
<div style="margin-top:30px;padding-top:20px;border-top:1px solid #e0e0e0;font-size:14px;color:#666;">
<strong>Contact Information:</strong>
{{- with .Phone}}<br>Phone: {{.}}{{end}}
{{- with .Email}}<br>Email: {{.}}{{end}}
{{- with .Website}}<br>Website: {{.}}{{end}}
</div>
{{- end}}
</div>
<div style="background-color:#f8f9fa;padding:20px;text-align:center;font-size:12px;color:#999;border-top:1px solid #e0e0e0;">
<p>Powered by <a href="https://sessionably.com" style="color:#00b4a6;text-decoration:none;">Sessionably</a> - HIPAA Compliant Messenger</p>
<p>This is a secure, encrypted communication from {{.Practice}}</p>
</div>
</div>
</body>
</html>`))

type layoutData struct {
	Subject  string
	Practice string
	Phone    string
	Email    string
	Website  string
	Greeting string
	Intro    []string
	Details  *details
	Action   *action
	Notes    []string
	Bullets  *bullets
}

func (m *message) html(b Branding) (string, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, layoutData{
		Subject:  m.subject,
		Practice: b.Name(),
		Phone:    strings.TrimSpace(b.Phone),
		Email:    strings.TrimSpace(b.Email),
		Website:  strings.TrimSpace(b.Website),
		Greeting: m.greeting,
		Intro:    m.intro,
		Details:  m.details,
		Action:   m.action,
		Notes:    m.notes,
		Bullets:  m.bullets,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// text renders the plain-text body: sections separated by blank lines,
// closed with the practice sign-off.
func (m *message) text(b Branding) string {
	var sections []string
	if m.greeting != "" {
		sections = append(sections, m.greeting)
	}
	sections = append(sections, m.intro...)
	if m.details != nil && len(m.details.Rows) > 0 {
		lines := make([]string, 0, len(m.details.Rows))
		for _, r := range m.details.Rows {
			lines = append(lines, r.Label+": "+r.Value)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if m.action != nil {
		sections = append(sections, m.action.Lead+"\n"+m.action.URL)
	}
	sections = append(sections, m.notes...)
	if m.bullets != nil && len(m.bullets.Items) > 0 {
		lines := []string{m.bullets.Title}
		for _, item := range m.bullets.Items {
			lines = append(lines, "- "+item)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	sections = append(sections, "Best regards,\n"+b.Name())
	return strings.Join(sections, "\n\n")
}
