package notification

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"
)

// EmailSender delivers confirmation codes over SMTP.
type EmailSender struct {
	host     string
	port     string
	account  string
	password string
	from     string
}

var _ Sender = (*EmailSender)(nil)

func NewEmailSender(host, port, account, password, from string) *EmailSender {
	return &EmailSender{
		host:     host,
		port:     port,
		account:  account,
		password: password,
		from:     from,
	}
}

func (s *EmailSender) SendConfirmationCode(_ context.Context, destination, code string) error {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Your login code\r\n\r\nYour confirmation code is %s. It expires shortly; if you did not request it, ignore this message.\r\n",
		s.from, destination, code,
	)

	auth := smtp.PlainAuth("", s.account, s.password, s.host)
	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, auth, s.from, []string{destination}, []byte(msg)); err != nil {
		return errors.Wrap(err, "[EmailSender.SendConfirmationCode] smtp.SendMail")
	}
	return nil
}
