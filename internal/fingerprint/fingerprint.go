// Package fingerprint derives the grouping key and human title for an
// inbound exception. Grouping must survive line shifts, quoted literal
// contents, and embedded ids/addresses, so frames are rendered without line
// numbers and the message is normalized before hashing.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

const (
	maxInAppFrames = 5
	hexLength      = 16
	maxTitleRunes  = 100
)

type StackFrame struct {
	Filename    string `json:"filename"`
	Function    string `json:"function"`
	Lineno      int    `json:"lineno"`
	Colno       int    `json:"colno"`
	AbsPath     string `json:"abs_path,omitempty"`
	ContextLine string `json:"context_line,omitempty"`
	InApp       bool   `json:"in_app"`
}

type Exception struct {
	Type       string       `json:"type"`
	Value      string       `json:"value"`
	Stacktrace []StackFrame `json:"stacktrace"`
}

var (
	singleQuoteRe = regexp.MustCompile(`'[^']*'`)
	doubleQuoteRe = regexp.MustCompile(`"[^"]*"`)
	uuidRe        = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	ipRe          = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	numberRe      = regexp.MustCompile(`\b\d+\b`)
)

// Generate hashes the exception shape into a short hex grouping key. The type
// is always the first, unnormalized component so distinct types never collide.
func Generate(exc Exception) string {
	components := make([]string, 0, maxInAppFrames+2)
	components = append(components, exc.Type)

	inApp := 0
	for _, f := range exc.Stacktrace {
		if !f.InApp {
			continue
		}
		components = append(components, f.Filename+":"+f.Function)
		inApp++
		if inApp == maxInAppFrames {
			break
		}
	}

	components = append(components, NormalizeMessage(exc.Value))
	return hash(strings.Join(components, "|"))
}

// GenerateFromMessage is the fallback for events carrying only a message.
func GenerateFromMessage(message string) string {
	return hash(message)
}

func hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:hexLength]
}

// NormalizeMessage replaces variable substrings with placeholders so one
// logical error does not fragment into many fingerprints. Order matters:
// quoted strings first, then UUIDs, IPs, and bare digit runs.
func NormalizeMessage(message string) string {
	result := singleQuoteRe.ReplaceAllString(message, "'*'")
	result = doubleQuoteRe.ReplaceAllString(result, `"*"`)
	result = uuidRe.ReplaceAllString(result, "*")
	result = ipRe.ReplaceAllString(result, "*")
	result = numberRe.ReplaceAllString(result, "*")
	return result
}

// Title renders "{type}: {message}" with the message truncated rune-safe.
func Title(exc Exception) string {
	return fmt.Sprintf("%s: %s", exc.Type, TruncateMessage(exc.Value))
}

func TruncateMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= maxTitleRunes {
		return message
	}
	return string(runes[:maxTitleRunes-3]) + "..."
}
