package domain

import "time"

// LetterDomain identifies one of the two correspondence registers. Each
// register numbers its letters independently per calendar year.
type LetterDomain string

const (
	DomainOutgoing LetterDomain = "outgoing"
	DomainIncoming LetterDomain = "incoming"
)

// Valid reports whether the value is one of the known registers.
func (d LetterDomain) Valid() bool {
	return d == DomainOutgoing || d == DomainIncoming
}

// Letter mirrors the persisted representation of a registered letter in
// either register. Number is derived from (Domain, SequenceNum, Year) and
// must always equal the display encoding produced by FormatNumber.
type Letter struct {
	ID          string
	Domain      LetterDomain
	OwnerID     string
	Number      string
	SequenceNum int64
	Year        int
	Subject     string
	// Outgoing-only fields.
	Recipient   *string
	IsProtected bool
	// Incoming-only fields.
	Organization *string
	ForwardedTo  *string
	CreatedAt    time.Time
}

// SequenceCounter is the durable atomic integer source for a (domain, year)
// pair. LastValue holds the last issued sequence number; zero means nothing
// has been issued yet.
type SequenceCounter struct {
	Domain    LetterDomain
	Year      int
	LastValue int64
	UpdatedAt time.Time
}

// Attachment is metadata for a file attached to a letter. Ownership is a
// discriminated (OwnerKind, OwnerID) pair; the owning letter's existence is
// verified at write time rather than through a loose string reference.
type Attachment struct {
	ID             string
	OwnerKind      LetterDomain
	OwnerID        string
	Filename       string
	StoredFilename string
	UploadedAt     time.Time
}
