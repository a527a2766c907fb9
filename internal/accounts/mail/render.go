// Package mail renders account emails and delivers them over SMTP or to the
// log.
package mail

import (
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Kind names a message template pair under templates/.
type Kind string

const (
	KindVerification Kind = "verification"
	KindWelcome      Kind = "welcome"
	KindResetRequest Kind = "reset_request"
	KindResetSuccess Kind = "reset_success"
)

var subjects = map[Kind]string{
	KindVerification: "Verify your email",
	KindWelcome:      "Welcome to %s",
	KindResetRequest: "Reset your password",
	KindResetSuccess: "Password reset successful",
}

// Message is a rendered email ready for a Transport.
type Message struct {
	Kind    Kind
	To      string
	Subject string
	HTML    string
	Text    string
}

type templatePair struct {
	html *pongo2.Template
	text *pongo2.Template
}

// Renderer holds the parsed templates. It is safe for concurrent use.
type Renderer struct {
	product   string
	clientURL string
	templates map[Kind]templatePair
}

// NewRenderer parses every embedded template up front so a broken template
// fails at startup rather than on first send.
func NewRenderer(product, clientURL string) (*Renderer, error) {
	if product == "" {
		product = "Accounts"
	}

	r := &Renderer{
		product:   product,
		clientURL: clientURL,
		templates: make(map[Kind]templatePair, len(subjects)),
	}

	for kind := range subjects {
		html, err := parse(string(kind) + ".html")
		if err != nil {
			return nil, err
		}
		text, err := parse(string(kind) + ".txt")
		if err != nil {
			return nil, err
		}
		r.templates[kind] = templatePair{html: html, text: text}
	}
	return r, nil
}

func parse(name string) (*pongo2.Template, error) {
	b, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("mail: read template %s: %w", name, err)
	}
	tpl, err := pongo2.FromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("mail: parse template %s: %w", name, err)
	}
	return tpl, nil
}

// Render executes the templates for kind with data. product and client_url
// are always available to templates.
func (r *Renderer) Render(kind Kind, to string, data pongo2.Context) (Message, error) {
	pair, ok := r.templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("mail: unknown message kind %q", kind)
	}

	ctx := pongo2.Context{
		"product":    r.product,
		"client_url": r.clientURL,
	}
	ctx = ctx.Update(data)

	html, err := pair.html.Execute(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("mail: render %s html: %w", kind, err)
	}
	text, err := pair.text.Execute(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("mail: render %s text: %w", kind, err)
	}

	subject := subjects[kind]
	if strings.Contains(subject, "%s") {
		subject = fmt.Sprintf(subject, r.product)
	}

	return Message{
		Kind:    kind,
		To:      to,
		Subject: subject,
		HTML:    html,
		Text:    strings.TrimSpace(text) + "\n",
	}, nil
}

// humanDuration renders whole hours or minutes, e.g. "24 hours", "1 hour".
func humanDuration(d time.Duration) string {
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
	return fmt.Sprintf("%d %ss", n, unit)
}
