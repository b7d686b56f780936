package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const (
	confirmationSubject = "Bienvenue ! Confirmez votre email"
	resendSubject       = "Nouveau lien de confirmation - Le Coin Lecture"
)

type linkData struct {
	FirstName string
	Link      string
}

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Bienvenue sur Le Coin Lecture{{if .FirstName}}, {{.FirstName}}{{end}} !</h1>
  <p>Merci de votre inscription. Pour activer votre compte, confirmez votre adresse email :</p>
  <p><a href="{{.Link}}" style="background: #8b5e3c; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">Confirmer mon email</a></p>
  <p>Ce lien expire dans 48 heures.</p>
  <p>Si vous n'êtes pas à l'origine de cette inscription, ignorez ce message.</p>
</body>
</html>`))

var resendHTML = htmltemplate.Must(htmltemplate.New("resend").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Nouveau lien de confirmation</h1>
  <p>Bonjour{{if .FirstName}} {{.FirstName}}{{end}}, voici votre nouveau lien pour confirmer votre adresse email :</p>
  <p><a href="{{.Link}}">Confirmer mon email</a></p>
  <p>Les liens envoyés précédemment ne sont plus valides.</p>
</body>
</html>`))

var linkText = texttemplate.Must(texttemplate.New("text").Parse(
	"Bonjour {{.FirstName}},\n\nConfirmez votre adresse email en ouvrant ce lien :\n{{.Link}}\n\nLe Coin Lecture\n"))

// ConfirmationMessage renders the mail sent right after registration.
func ConfirmationMessage(to, firstName, link string) (Message, error) {
	return render(to, confirmationSubject, confirmationHTML, linkData{FirstName: firstName, Link: link})
}

// ResendMessage renders the mail carrying a fresh confirmation link.
func ResendMessage(to, firstName, link string) (Message, error) {
	return render(to, resendSubject, resendHTML, linkData{FirstName: firstName, Link: link})
}

func render(to, subject string, html *htmltemplate.Template, data linkData) (Message, error) {
	var h, t bytes.Buffer
	if err := html.Execute(&h, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", html.Name(), err)
	}
	if err := linkText.Execute(&t, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return Message{To: to, Subject: subject, HTML: h.String(), Text: t.String()}, nil
}
