package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
)

const postmarkEndpoint = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	frontendURL string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, frontendURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

// Recipient identifies who a token email is addressed to.
type Recipient struct {
	Name     string
	Lastname string
	Email    string
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
}

var tokenTemplate = template.Must(template.New("token").Parse(
	`<h1>Hola {{.Name}} {{.Lastname}}!</h1>
<p>{{.Intro}}</p>
<p>Por favor haz click en el siguiente enlace:</p>
<a href="{{.Link}}">{{.Action}}</a>
<p>E ingresa el código: <b>{{.Token}}</b></p>`))

type tokenData struct {
	Name     string
	Lastname string
	Intro    string
	Link     string
	Action   string
	Token    string
}

// SendConfirmation emails the account confirmation code.
func (c *Client) SendConfirmation(ctx context.Context, to Recipient, token string) error {
	return c.sendToken(ctx, to, "CashTrackr - Confirma tú Cuenta", tokenData{
		Intro:  "Gracias por registrarte en CashTrackr, ya casi esta todo listo, solo debes confirmar tu cuenta.",
		Link:   c.frontendURL + "/auth/confirm-account",
		Action: "Confirmar Cuenta",
		Token:  token,
	})
}

// SendPasswordReset emails the password reset code.
func (c *Client) SendPasswordReset(ctx context.Context, to Recipient, token string) error {
	return c.sendToken(ctx, to, "CashTrackr - Restablece tú Password", tokenData{
		Intro:  "Has solicitado reestablecer tú password.",
		Link:   c.frontendURL + "/auth/new-password",
		Action: "Reestablecer Password",
		Token:  token,
	})
}

func (c *Client) sendToken(ctx context.Context, to Recipient, subject string, data tokenData) error {
	data.Name = to.Name
	data.Lastname = to.Lastname

	var body bytes.Buffer
	if err := tokenTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return c.Send(ctx, to.Email, subject, body.String())
}

// Send delivers a single HTML email through the Postmark API.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       to,
		Subject:  subject,
		HtmlBody: html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
