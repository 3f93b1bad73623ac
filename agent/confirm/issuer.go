// Package confirm issues confirmation numbers that callers read back aloud.
package confirm

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
)

const (
	PrefixPayment = "PAY"
	PrefixBooking = "APT"

	tokenBytes = 4
)

var _ contractx.TokenIssuer = (*Issuer)(nil)

// Issuer never hands out the same token twice within a process.
type Issuer struct {
	mu     sync.Mutex
	issued map[string]struct{}
	source func() [16]byte
}

func NewIssuer() *Issuer {
	return &Issuer{
		issued: make(map[string]struct{}, 64),
		source: func() [16]byte { return uuid.New() },
	}
}

func (i *Issuer) Issue(prefix string) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))

	i.mu.Lock()
	defer i.mu.Unlock()
	for {
		raw := i.source()
		token := prefix + "-" + strings.ToUpper(hex.EncodeToString(raw[:tokenBytes]))
		if _, dup := i.issued[token]; dup {
			continue
		}
		i.issued[token] = struct{}{}
		return token
	}
}
