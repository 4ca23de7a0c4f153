package service

import (
	"strings"

	"github.com/vipul43/leadloop/internal/models"
)

// freeEmailDomains are consumer providers the mail relay will not accept as a From domain
var freeEmailDomains = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "yahoo.com": true, "yahoo.co.uk": true,
	"outlook.com": true, "hotmail.com": true, "live.com": true, "icloud.com": true,
	"me.com": true, "mac.com": true, "aol.com": true, "mail.com": true,
	"protonmail.com": true, "zoho.com": true, "yandex.com": true, "gmx.com": true,
}

// IsFreeEmailDomain reports whether address is hosted by a consumer mail provider
func IsFreeEmailDomain(address string) bool {
	address = strings.ToLower(strings.TrimSpace(address))
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return false
	}
	return freeEmailDomains[address[at+1:]]
}

// SenderDefaults is the verified system sender used when a tenant has no usable address
type SenderDefaults struct {
	Name    string
	Address string
}

// Identity is who an outbound message appears to come from
type Identity struct {
	Name    string
	Address string
}

// FollowupIdentity resolves the tenant's sender for follow-ups.
// The display name is the client name, else the account local-part, else the default name.
// The address is the account email unless it sits on a free-mail domain.
func FollowupIdentity(client *models.Client, account *models.Account, defaults SenderDefaults) Identity {
	id := Identity{Name: defaults.Name, Address: defaults.Address}

	if account != nil {
		if local := account.LocalPart(); local != "" {
			id.Name = local
		}
		if strings.Contains(account.Email, "@") && !IsFreeEmailDomain(account.Email) {
			id.Address = account.Email
		}
	}
	if client != nil && strings.TrimSpace(client.Name) != "" {
		id.Name = strings.TrimSpace(client.Name)
	}
	return id
}

// AutoreplyIdentity always sends from the system address, showing the client name
func AutoreplyIdentity(client *models.Client, defaults SenderDefaults) Identity {
	id := Identity{Name: defaults.Name, Address: defaults.Address}
	if client != nil && strings.TrimSpace(client.Name) != "" {
		id.Name = strings.TrimSpace(client.Name)
	}
	return id
}
