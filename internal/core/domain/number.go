package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidNumber indicates a string that does not match the document number
// grammar "<Prefix>-<sequence>/<YY>".
var ErrInvalidNumber = errors.New("invalid document number")

// Register prefixes. Display prefixes use the Cyrillic alphabet as printed on
// outgoing paperwork; the filesystem variants are their fixed ASCII
// transliterations, safe for path segments.
const (
	prefixOutgoingDisplay = "Н"
	prefixOutgoingFS      = "H"
	prefixIncomingDisplay = "ВХ"
	prefixIncomingFS      = "VH"
)

// DocumentNumber is the parsed form of a display or filesystem number.
type DocumentNumber struct {
	Domain   LetterDomain
	Sequence int64
	Year     int
}

// FormatNumber renders the canonical display encoding for a document number,
// e.g. "Н-17/26" for the 17th outgoing letter of 2026.
func FormatNumber(d LetterDomain, sequence int64, year int) string {
	return fmt.Sprintf("%s-%d/%02d", displayPrefix(d), sequence, year%100)
}

// FormatNumberFS renders the filesystem-safe encoding, e.g. "VH-17/26". Both
// encodings parse back to the same (domain, sequence, year) triple.
func FormatNumberFS(d LetterDomain, sequence int64, year int) string {
	return fmt.Sprintf("%s-%d/%02d", fsPrefix(d), sequence, year%100)
}

// PlaceholderNumber is the degraded dashboard value shown when the next
// number cannot be computed.
func PlaceholderNumber(d LetterDomain, year int) string {
	return fmt.Sprintf("%s-0/%02d", displayPrefix(d), year%100)
}

var numberPattern = regexp.MustCompile(`^(Н|H|ВХ|VH)-(\d+)/(\d{2})$`)

// ParseNumber decodes either encoding of a document number. The two-digit
// year is expanded into the 21st century.
func ParseNumber(s string) (DocumentNumber, error) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return DocumentNumber{}, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}

	var d LetterDomain
	switch m[1] {
	case prefixOutgoingDisplay, prefixOutgoingFS:
		d = DomainOutgoing
	case prefixIncomingDisplay, prefixIncomingFS:
		d = DomainIncoming
	}

	seq, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return DocumentNumber{}, fmt.Errorf("%w: sequence %q", ErrInvalidNumber, m[2])
	}

	yy, err := strconv.Atoi(m[3])
	if err != nil {
		return DocumentNumber{}, fmt.Errorf("%w: year %q", ErrInvalidNumber, m[3])
	}

	return DocumentNumber{Domain: d, Sequence: seq, Year: 2000 + yy}, nil
}

// Display returns the display encoding of the parsed number.
func (n DocumentNumber) Display() string {
	return FormatNumber(n.Domain, n.Sequence, n.Year)
}

// FileSystem returns the filesystem-safe encoding of the parsed number.
func (n DocumentNumber) FileSystem() string {
	return FormatNumberFS(n.Domain, n.Sequence, n.Year)
}

func displayPrefix(d LetterDomain) string {
	if d == DomainIncoming {
		return prefixIncomingDisplay
	}
	return prefixOutgoingDisplay
}

func fsPrefix(d LetterDomain) string {
	if d == DomainIncoming {
		return prefixIncomingFS
	}
	return prefixOutgoingFS
}
