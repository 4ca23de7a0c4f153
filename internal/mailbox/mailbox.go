// Package mailbox pulls unread messages from tenant inboxes and normalizes them into lead candidates.
package mailbox

import (
	"context"
	"fmt"

	"github.com/vipul43/leadloop/internal/models"
)

const (
	MaxSubjectLen     = 500
	MaxBodySnippetLen = 2000
	maxNameLen        = 200
	maxPhoneLen       = 50
)

// Candidate is one inbound message that may become a lead
type Candidate struct {
	ExternalID    string
	SenderName    string
	SenderAddress string
	Phone         string
	Subject       string
	BodySnippet   string
	// Synthetic is set when the message had no native id and ExternalID was derived
	// from mailbox-local state. Such ids are not stable across mailbox rebuilds.
	Synthetic bool
}

// Credentials identifies a mailbox and how to log into it
type Credentials struct {
	Provider     models.MailboxProvider
	Host         string
	Username     string
	Password     string
	RefreshToken string
}

// Fetcher reads unread candidates and marks them processed
type Fetcher interface {
	FetchUnread(ctx context.Context, creds Credentials, limit int) ([]Candidate, error)
	MarkProcessed(ctx context.Context, creds Credentials, ids []string) error
}

// CredentialsFor builds mailbox credentials from a stored account
func CredentialsFor(account models.Account, defaultHost string) Credentials {
	creds := Credentials{
		Provider: account.MailboxProvider,
		Host:     account.MailboxHost,
		Username: account.Email,
	}
	if creds.Provider == "" {
		creds.Provider = models.MailboxProviderIMAP
	}
	if creds.Host == "" {
		creds.Host = defaultHost
	}
	if account.MailboxPassword != nil {
		creds.Password = *account.MailboxPassword
	}
	if account.RefreshToken != nil {
		creds.RefreshToken = *account.RefreshToken
	}
	return creds
}

// Router dispatches to the fetcher registered for the credentials' provider
type Router struct {
	fetchers map[models.MailboxProvider]Fetcher
}

func NewRouter(imapFetcher Fetcher, gmailFetcher Fetcher) *Router {
	return &Router{
		fetchers: map[models.MailboxProvider]Fetcher{
			models.MailboxProviderIMAP:  imapFetcher,
			models.MailboxProviderGmail: gmailFetcher,
		},
	}
}

func (r *Router) fetcher(provider models.MailboxProvider) (Fetcher, error) {
	if provider == "" {
		provider = models.MailboxProviderIMAP
	}
	f, ok := r.fetchers[provider]
	if !ok || f == nil {
		return nil, fmt.Errorf("unsupported mailbox provider %q", provider)
	}
	return f, nil
}

func (r *Router) FetchUnread(ctx context.Context, creds Credentials, limit int) ([]Candidate, error) {
	f, err := r.fetcher(creds.Provider)
	if err != nil {
		return nil, err
	}
	return f.FetchUnread(ctx, creds, limit)
}

func (r *Router) MarkProcessed(ctx context.Context, creds Credentials, ids []string) error {
	f, err := r.fetcher(creds.Provider)
	if err != nil {
		return err
	}
	return f.MarkProcessed(ctx, creds, ids)
}
