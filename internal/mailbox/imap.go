package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
)

const (
	imapPort     = "993"
	inboxName    = "INBOX"
	fetchBufSize = 10
)

// IMAPFetcher reads unseen messages over IMAPS
type IMAPFetcher struct {
	timeout   time.Duration
	tlsConfig *tls.Config
	log       *zap.Logger
}

func NewIMAPFetcher(timeout time.Duration, log *zap.Logger) *IMAPFetcher {
	return &IMAPFetcher{timeout: timeout, log: log}
}

// SetTLSConfig overrides the TLS settings used to dial (nil means system roots)
func (f *IMAPFetcher) SetTLSConfig(cfg *tls.Config) {
	f.tlsConfig = cfg
}

// connect dials, logs in and selects the inbox. The caller must Logout.
func (f *IMAPFetcher) connect(ctx context.Context, creds Credentials) (*client.Client, *imap.MailboxStatus, error) {
	addr := creds.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, imapPort)
	}

	dialer := &net.Dialer{Timeout: f.timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	c, err := client.DialWithDialerTLS(dialer, addr, f.tlsConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c.Timeout = f.timeout

	if err := c.Login(creds.Username, creds.Password); err != nil {
		c.Logout()
		return nil, nil, authError(fmt.Errorf("login failed: %w", err))
	}

	status, err := c.Select(inboxName, false)
	if err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("failed to select %s: %w", inboxName, err)
	}

	return c, status, nil
}

func unseenUIDs(c *client.Client) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unseen: %w", err)
	}
	return uids, nil
}

// FetchUnread returns unseen inbox messages without setting \Seen. limit <= 0 means all;
// otherwise the newest limit messages are returned, so unread mail the classifier keeps
// rejecting cannot starve newer messages.
func (f *IMAPFetcher) FetchUnread(ctx context.Context, creds Credentials, limit int) ([]Candidate, error) {
	c, status, err := f.connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	uids, err := unseenUIDs(c)
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return nil, nil
	}
	uids = newestUIDs(uids, limit)

	f.log.Debug("Fetching unseen messages", zap.Int("count", len(uids)))

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, fetchBufSize)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	candidates := make([]Candidate, 0, len(uids))
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}

		fallbackID := syntheticID(status.UidValidity, msg.Uid)
		candidate, err := parseRFC822(body, fallbackID)
		if err != nil {
			f.log.Warn("Skipping unparseable message", zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		if candidate.Synthetic {
			f.log.Warn("Message has no Message-ID, using mailbox-local id; dedup is not stable for it",
				zap.String("external_id", candidate.ExternalID))
		}
		candidates = append(candidates, candidate)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return candidates, nil
}

// MarkProcessed sets \Seen on unseen messages whose id is in ids
func (f *IMAPFetcher) MarkProcessed(ctx context.Context, creds Credentials, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	c, status, err := f.connect(ctx, creds)
	if err != nil {
		return err
	}
	defer c.Logout()

	uids, err := unseenUIDs(c)
	if err != nil || len(uids) == 0 {
		return err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = true
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, fetchBufSize)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope}, messages)
	}()

	toMark := new(imap.SeqSet)
	for msg := range messages {
		id := syntheticID(status.UidValidity, msg.Uid)
		if msg.Envelope != nil && strings.TrimSpace(msg.Envelope.MessageId) != "" {
			id = normalizeMessageID(msg.Envelope.MessageId)
		}
		if wanted[id] {
			toMark.AddNum(msg.Uid)
		}
	}
	if err := <-done; err != nil {
		return fmt.Errorf("failed to fetch envelopes: %w", err)
	}

	if toMark.Empty() {
		return nil
	}

	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(toMark, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		return fmt.Errorf("failed to mark messages seen: %w", err)
	}
	return nil
}

// newestUIDs keeps the limit highest uids. UIDs grow with arrival order.
func newestUIDs(uids []uint32, limit int) []uint32 {
	if limit <= 0 || len(uids) <= limit {
		return uids
	}
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)-limit:]
}

func syntheticID(uidValidity, uid uint32) string {
	return "uid-" + strconv.FormatUint(uint64(uidValidity), 10) + "-" + strconv.FormatUint(uint64(uid), 10)
}

// normalizeMessageID keeps the angle-bracket form so ids from headers and envelopes compare equal
func normalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if !strings.HasPrefix(id, "<") {
		id = "<" + id
	}
	if !strings.HasSuffix(id, ">") {
		id += ">"
	}
	return id
}

// parseRFC822 turns a raw message into a candidate.
// fallbackID is used, and the candidate flagged Synthetic, when there is no Message-ID header.
func parseRFC822(r io.Reader, fallbackID string) (Candidate, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return Candidate{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	var plain, htmlParts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return Candidate{}, fmt.Errorf("failed to read part: %w", err)
		}
		if part == nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue // attachment
		}
		contentType, _, _ := h.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch strings.ToLower(contentType) {
		case "text/plain", "":
			plain = append(plain, string(data))
		case "text/html":
			htmlParts = append(htmlParts, string(data))
		}
	}

	externalID := normalizeMessageID(mr.Header.Get("Message-Id"))
	synthetic := false
	if externalID == "" {
		externalID = fallbackID
		synthetic = true
	}

	from, err := mr.Header.Text("From")
	if err != nil {
		from = mr.Header.Get("From")
	}
	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}

	candidate := newCandidate(externalID, from, subject, strings.Join(plain, " "), strings.Join(htmlParts, " "))
	candidate.Synthetic = synthetic
	return candidate, nil
}
