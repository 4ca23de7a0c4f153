package mailbox

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/vipul43/leadloop/internal/models"
)

// FetchError carries a classified mailbox failure
type FetchError struct {
	Kind models.MailboxErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func authError(err error) error {
	return &FetchError{Kind: models.MailboxErrorAuth, Err: err}
}

// ClassifyError maps a mailbox error to auth, timeout or other
func ClassifyError(err error) models.MailboxErrorKind {
	if err == nil {
		return models.MailboxErrorNone
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.MailboxErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.MailboxErrorTimeout
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return models.MailboxErrorAuth
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return models.MailboxErrorAuth
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication failed"),
		strings.Contains(msg, "invalid credentials"),
		strings.Contains(msg, "login"):
		return models.MailboxErrorAuth
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return models.MailboxErrorTimeout
	}
	return models.MailboxErrorOther
}

// UserMessage is the operator-facing explanation for an error kind
func UserMessage(kind models.MailboxErrorKind, err error) string {
	switch kind {
	case models.MailboxErrorAuth:
		return "Mailbox login failed. For Gmail over IMAP use an App Password, not your normal password."
	case models.MailboxErrorTimeout:
		return "Mailbox connection timed out. Check network access and that IMAP is enabled."
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
