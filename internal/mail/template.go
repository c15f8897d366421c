package mail

import (
	"bytes"
	"html/template"
	"strconv"
	"time"
)

// VerificationSubject is the subject line of every verification email.
const VerificationSubject = "Verify Your Email Address"

var verificationTmpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #4F46E5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
    .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
    .button { display: inline-block; padding: 12px 30px; background: #4F46E5; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>Welcome!</h1></div>
    <div class="content">
      <h2>Hi {{.Name}},</h2>
      <p>Thank you for registering! Please verify your email address to activate your account.</p>
      <p><strong>This link will expire in {{.Expiry}}.</strong></p>
      <p style="text-align: center;"><a href="{{.Link}}" class="button">Verify Email Address</a></p>
      <p>Or copy and paste this link into your browser:</p>
      <p style="word-break: break-all; color: #4F46E5;">{{.Link}}</p>
      <p>If you didn't create an account, please ignore this email.</p>
    </div>
  </div>
</body>
</html>
`))

// VerificationMessage renders the email asking the recipient to follow link
// before ttl elapses.
func VerificationMessage(to, name, link string, ttl time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, struct {
		Name, Link, Expiry string
	}{Name: name, Link: link, Expiry: humanize(ttl)})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: VerificationSubject, HTML: buf.String()}, nil
}

func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
