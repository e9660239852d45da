package notify

import (
	"bytes"
	"html/template"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

const layout = `Dear {{.Name}},
<br />
<br />
{{.Intro}}
Please click the link below or copy it into your browser.
<br />
<br />
<a href="{{.Link}}" style="text-decoration: none;padding: 1rem 2.25rem; font-size: 1.2rem; font-weight: 900; background-color: #00602d; color: white; margin: auto; text-align: center; display: block; width: 80%;">{{.Action}}</a>
<br />
<br />
{{.Link}}
<br />
<br />
Best Wishes, <br />
ELF Team
`

var mailTemplate = template.Must(template.New("mail").Parse(layout))

type mailData struct {
	Name   string
	Intro  string
	Action string
	Link   string
}

func render(to, subject string, d mailData) (Message, error) {
	var buf bytes.Buffer
	if err := mailTemplate.Execute(&buf, d); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

func AccountConfirmation(to, firstname, link string) (Message, error) {
	return render(to, "Account Confirmation", mailData{
		Name:   firstname,
		Intro:  "Thank you for joining our programme. Just one more step.",
		Action: "Confirm Account",
		Link:   link,
	})
}

func PasswordReset(to, firstname, link string) (Message, error) {
	return render(to, "Password Reset", mailData{
		Name:   firstname,
		Intro:  "You have requested to reset your password.",
		Action: "Reset your password",
		Link:   link,
	})
}

func PasswordResetSuccess(to, firstname, link string) (Message, error) {
	return render(to, "Password Reset Successfully", mailData{
		Name:   firstname,
		Intro:  "Your password has been successfully updated.",
		Action: "Login",
		Link:   link,
	})
}
