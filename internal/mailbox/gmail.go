package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	gmailUser        = "me"
	gmailUnreadQuery = "is:unread in:inbox"
	gmailUnreadLabel = "UNREAD"
	gmailPageSize    = 50
	gmailTokenURL    = "https://oauth2.googleapis.com/token"
)

// GmailFetcher reads unread inbox messages through the Gmail API using a stored refresh token
type GmailFetcher struct {
	clientID     string
	clientSecret string
	log          *zap.Logger
	// newService is swapped in tests
	newService func(ctx context.Context, creds Credentials) (*gmail.Service, error)
}

func NewGmailFetcher(clientID, clientSecret string, log *zap.Logger) *GmailFetcher {
	f := &GmailFetcher{
		clientID:     clientID,
		clientSecret: clientSecret,
		log:          log,
	}
	f.newService = f.serviceFor
	return f
}

// serviceFor builds a Gmail service whose token source refreshes the access token on demand
func (f *GmailFetcher) serviceFor(ctx context.Context, creds Credentials) (*gmail.Service, error) {
	if f.clientID == "" || f.clientSecret == "" {
		return nil, fmt.Errorf("gmail OAuth client not configured")
	}
	if creds.RefreshToken == "" {
		return nil, authError(fmt.Errorf("missing refresh token"))
	}

	config := &oauth2.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: gmailTokenURL,
		},
		Scopes: []string{gmail.GmailModifyScope},
	}
	tokenSource := config.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	gmailService, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return gmailService, nil
}

// listUnreadIDs pages through unread inbox ids up to limit (0 means all)
func listUnreadIDs(ctx context.Context, svc *gmail.Service, limit int) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		pageSize := int64(gmailPageSize)
		if limit > 0 && limit-len(ids) < gmailPageSize {
			pageSize = int64(limit - len(ids))
		}

		call := svc.Users.Messages.List(gmailUser).Q(gmailUnreadQuery).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}
		if resp.NextPageToken == "" || (limit > 0 && len(ids) >= limit) {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

// FetchUnread returns unread inbox messages, oldest listing order preserved
func (f *GmailFetcher) FetchUnread(ctx context.Context, creds Credentials, limit int) ([]Candidate, error) {
	svc, err := f.newService(ctx, creds)
	if err != nil {
		return nil, err
	}

	ids, err := listUnreadIDs(ctx, svc, limit)
	if err != nil {
		return nil, err
	}

	f.log.Debug("Gmail API returned unread messages", zap.Int("count", len(ids)))

	candidates := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		msg, err := svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
		if err != nil {
			f.log.Warn("Failed to get message", zap.String("gmail_id", id), zap.Error(err))
			continue
		}
		candidates = append(candidates, parseGmailMessage(msg))
	}

	return candidates, nil
}

// MarkProcessed removes the UNREAD label from unread messages whose external id is in ids
func (f *GmailFetcher) MarkProcessed(ctx context.Context, creds Credentials, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	svc, err := f.newService(ctx, creds)
	if err != nil {
		return err
	}

	unread, err := listUnreadIDs(ctx, svc, 0)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = true
	}

	var toMark []string
	for _, gmailID := range unread {
		msg, err := svc.Users.Messages.Get(gmailUser, gmailID).Format("metadata").MetadataHeaders("Message-ID").Context(ctx).Do()
		if err != nil {
			continue
		}
		if wanted[gmailExternalID(msg)] {
			toMark = append(toMark, gmailID)
		}
	}
	if len(toMark) == 0 {
		return nil
	}

	err = svc.Users.Messages.BatchModify(gmailUser, &gmail.BatchModifyMessagesRequest{
		Ids:            toMark,
		RemoveLabelIds: []string{gmailUnreadLabel},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// gmailExternalID prefers the RFC Message-ID; the Gmail id is stable per mailbox so it is not synthetic
func gmailExternalID(msg *gmail.Message) string {
	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			if strings.EqualFold(header.Name, "Message-ID") && strings.TrimSpace(header.Value) != "" {
				return normalizeMessageID(header.Value)
			}
		}
	}
	return "gmail-" + msg.Id
}

// parseGmailMessage parses a full-format Gmail message into a candidate
func parseGmailMessage(msg *gmail.Message) Candidate {
	var from, subject string
	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch strings.ToLower(header.Name) {
			case "from":
				from = header.Value
			case "subject":
				subject = header.Value
			}
		}
	}

	plain, htmlBody := extractBodies(msg.Payload)
	return newCandidate(gmailExternalID(msg), from, subject, plain, htmlBody)
}

// extractBodies extracts both text and HTML bodies from message payload
func extractBodies(payload *gmail.MessagePart) (string, string) {
	var textPlain, textHTML string
	if payload == nil {
		return "", ""
	}

	// Check if body is in the main payload
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, ok := decodeBase64URL(payload.Body.Data); ok {
			switch payload.MimeType {
			case "text/plain":
				textPlain = decoded
			case "text/html":
				textHTML = decoded
			}
		}
	}

	// Recursively extract from parts
	extractBodiesFromParts(payload.Parts, &textPlain, &textHTML)

	return textPlain, textHTML
}

// extractBodiesFromParts recursively extracts text and HTML from message parts
func extractBodiesFromParts(parts []*gmail.MessagePart, textPlain, textHTML *string) {
	for _, part := range parts {
		if part.Filename == "" && part.Body != nil && part.Body.Data != "" {
			if decoded, ok := decodeBase64URL(part.Body.Data); ok {
				if part.MimeType == "text/plain" && *textPlain == "" {
					*textPlain = decoded
				} else if part.MimeType == "text/html" && *textHTML == "" {
					*textHTML = decoded
				}
			}
		}

		// Recursively check nested parts
		if len(part.Parts) > 0 {
			extractBodiesFromParts(part.Parts, textPlain, textHTML)
		}
	}
}

// decodeBase64URL accepts padded and unpadded URL-safe base64
func decodeBase64URL(data string) (string, bool) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded), true
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded), true
	}
	return "", false
}
