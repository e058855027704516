// Package parse provides address extraction, subject-tag handling, and
// Message-ID generation for the helpdesk bridge.
package parse

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	addrRe        = regexp.MustCompile(`<([^>]+)>|([^\s<>]+@[^\s<>]+)`)
	replyPrefixRe = regexp.MustCompile(`(?i)^(re|fwd|fw):\s*`)
)

// Address extracts the bare email address from a header value like
// "Jane Doe <jane@example.com>" or a standalone address. If nothing
// address-like matches, the trimmed input is returned unchanged.
func Address(raw string) string {
	m := addrRe.FindStringSubmatch(raw)
	if m == nil {
		return strings.TrimSpace(raw)
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// tagRe returns the pattern matching a bracketed conversation tag for the
// given ticket prefix, e.g. [GH-0042].
func tagRe(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`\[` + regexp.QuoteMeta(prefix) + `-(\d+)\]`)
}

// ConversationTag extracts the conversation number from a subject line
// carrying a [PREFIX-NNNN] tag. Returns 0, false when no tag is present.
func ConversationTag(prefix, subject string) (int, bool) {
	m := tagRe(prefix).FindStringSubmatch(subject)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatTitle builds an issue title like "[GH-0042] Login issue": any
// existing tag and any stack of Re:/Fwd: prefixes are stripped, then the
// zero-padded tag for number is prepended.
func FormatTitle(prefix string, number int, subject string) string {
	clean := tagRe(prefix).ReplaceAllString(subject, "")
	clean = strings.TrimSpace(clean)
	for {
		stripped := replyPrefixRe.ReplaceAllString(clean, "")
		if stripped == clean {
			break
		}
		clean = strings.TrimSpace(stripped)
	}
	return fmt.Sprintf("[%s-%04d] %s", prefix, number, strings.TrimSpace(clean))
}

// GenerateMessageID produces an RFC 5322 style Message-ID of the form
// <hex@domain>. It hashes a nanosecond clock reading together with random
// bytes, so concurrent invocations collide only with negligible probability.
func GenerateMessageID(domain string) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().UnixNano()))
	if _, err := rand.Read(buf[8:]); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	sum := sha256.Sum256(buf[:])
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(sum[:8]), domain)
}
