package templates

import (
	"fmt"
	"html"
	"strings"
)

// RenderReportEmail renders a plain text report as branded HTML. The subject
// is shown in the header; the body is escaped and its newlines become <br>.
func RenderReportEmail(subject, body string) string {
	htmlBody := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
	safeSubject := html.EscapeString(subject)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f6f8; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #b91c1c; padding: 28px 30px; }
    .header h1 { color: #fff; margin: 0; font-size: 20px; font-weight: 700; }
    .content { padding: 30px; color: #111827; line-height: 1.6; font-size: 14px; font-family: Consolas, monospace; }
    .footer { padding: 20px 30px; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>PulsePoint ERIS automated report</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, htmlBody)
}
