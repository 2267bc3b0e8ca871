package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
	<h2 style="color: #333;">{{.Heading}}</h2>
	<p>{{.Body}}</p>
	<p style="font-size: 18px; font-weight: 600;">{{.Amount}}</p>
	<p style="color: #888; font-size: 14px;">{{.Balance}}</p>
	<p style="color: #aaa; font-size: 12px;">Ref: {{.SessionID}}</p>
</div>`))

var receiptText = map[string]struct{ subject, heading, body, balance string }{
	"en": {"Your Hand Rating credits", "Thanks for your purchase!", "%d credits were added to your account.", "You now have %d uploads remaining."},
	"es": {"Tus créditos de Hand Rating", "¡Gracias por tu compra!", "Se añadieron %d créditos a tu cuenta.", "Ahora tienes %d análisis disponibles."},
	"fr": {"Vos crédits Hand Rating", "Merci pour votre achat !", "%d crédits ont été ajoutés à votre compte.", "Il vous reste maintenant %d analyses."},
}

// Receipt describes a credited payment.
type Receipt struct {
	To               string
	Language         string
	Credits          int
	UploadsRemaining int
	AmountTotal      int64
	Currency         string
	SessionID        string
}

// PaymentReceipt renders the receipt email for a credit grant.
func PaymentReceipt(r Receipt) (Message, error) {
	text, ok := receiptText[r.Language]
	if !ok {
		text = receiptText["en"]
	}
	var buf bytes.Buffer
	err := receiptTmpl.Execute(&buf, map[string]string{
		"Heading":   text.heading,
		"Body":      fmt.Sprintf(text.body, r.Credits),
		"Amount":    FormatAmount(r.AmountTotal, r.Currency),
		"Balance":   fmt.Sprintf(text.balance, r.UploadsRemaining),
		"SessionID": r.SessionID,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render receipt: %w", err)
	}
	return Message{To: r.To, Subject: text.subject, HTML: buf.String()}, nil
}

// FormatAmount renders minor units, e.g. 1500 usd as "15.00 USD".
func FormatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, strings.ToUpper(currency))
}
