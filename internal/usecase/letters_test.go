package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/repository"
)

var lettersNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type letterFixture struct {
	svc         *LetterService
	letters     *memLetters
	attachments *memAttachments
	sequences   *memSequences
}

func newLetterFixture(t *testing.T) *letterFixture {
	t.Helper()
	sequences := newMemSequences()
	letters := newMemLetters()
	attachments := newMemAttachments()
	clock := newFixedClock(lettersNow)
	log := zaptest.NewLogger(t)
	numbering := NewNumberingService(sequences, letters, clock, log, nil)
	return &letterFixture{
		svc:         NewLetterService(letters, attachments, numbering, clock, log),
		letters:     letters,
		attachments: attachments,
		sequences:   sequences,
	}
}

func TestRegisterOutgoingAssignsFirstNumber(t *testing.T) {
	f := newLetterFixture(t)

	letter, err := f.svc.RegisterOutgoing(context.Background(), RegisterOutgoingInput{
		OwnerID:   "acc-1",
		Subject:   "Ответ на запрос",
		Recipient: "ООО Ромашка",
	})
	if err != nil {
		t.Fatalf("RegisterOutgoing: %v", err)
	}

	if letter.Number != "Н-1/26" {
		t.Errorf("Number = %q, want Н-1/26", letter.Number)
	}
	if letter.SequenceNum != 1 || letter.Year != 2026 {
		t.Errorf("sequence/year = %d/%d, want 1/2026", letter.SequenceNum, letter.Year)
	}
	if letter.Recipient == nil || *letter.Recipient != "ООО Ромашка" {
		t.Error("recipient not carried through")
	}
	if letter.OwnerID != "acc-1" {
		t.Errorf("OwnerID = %q, want acc-1", letter.OwnerID)
	}
}

func TestRegisterIncomingUsesOwnRegister(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	if _, err := f.svc.RegisterOutgoing(ctx, RegisterOutgoingInput{Subject: "a"}); err != nil {
		t.Fatal(err)
	}

	letter, err := f.svc.RegisterIncoming(ctx, RegisterIncomingInput{
		Subject:      "Запрос",
		Organization: "Министерство",
		ForwardedTo:  "И.И. Иванов",
	})
	if err != nil {
		t.Fatalf("RegisterIncoming: %v", err)
	}

	if letter.Number != "ВХ-1/26" {
		t.Errorf("Number = %q, want ВХ-1/26 independent of the outgoing register", letter.Number)
	}
	if letter.Organization == nil || *letter.Organization != "Министерство" {
		t.Error("organization not carried through")
	}
}

func TestRegisterRetriesAfterDuplicateSequence(t *testing.T) {
	f := newLetterFixture(t)

	// A letter already holds sequence 1 while the counter still reads 0, so
	// the first allocation collides and the loop must realign and retake.
	f.letters.add(domain.Letter{ID: "old", Domain: domain.DomainOutgoing, SequenceNum: 1, Year: 2026})

	letter, err := f.svc.RegisterOutgoing(context.Background(), RegisterOutgoingInput{Subject: "a"})
	if err != nil {
		t.Fatalf("RegisterOutgoing: %v", err)
	}
	if letter.Number != "Н-2/26" {
		t.Errorf("Number = %q, want Н-2/26 after realignment", letter.Number)
	}
	if got := f.sequences.value(domain.DomainOutgoing, 2026); got != 2 {
		t.Errorf("counter = %d, want 2", got)
	}
}

func TestRegisterGivesUpAfterRepeatedDuplicates(t *testing.T) {
	f := newLetterFixture(t)
	conflict := errors.New("duplicate key")
	wrapped := errors.Join(repository.ErrConflict, conflict)
	f.letters.failCreateWith(wrapped, wrapped, wrapped)

	_, err := f.svc.RegisterOutgoing(context.Background(), RegisterOutgoingInput{Subject: "a"})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("err = %v, want wrapped ErrConflict", err)
	}
}

func TestRegisterReleasesNumberOnPersistFailure(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()
	hard := errors.New("disk full")
	f.letters.failCreateWith(hard)

	if _, err := f.svc.RegisterOutgoing(ctx, RegisterOutgoingInput{Subject: "a"}); !errors.Is(err, hard) {
		t.Fatalf("err = %v, want the persistence failure", err)
	}
	if got := f.sequences.value(domain.DomainOutgoing, 2026); got != 0 {
		t.Errorf("counter = %d after compensation, want 0", got)
	}

	// The released number is reissued, not burned.
	letter, err := f.svc.RegisterOutgoing(ctx, RegisterOutgoingInput{Subject: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if letter.Number != "Н-1/26" {
		t.Errorf("Number = %q, want the released Н-1/26", letter.Number)
	}
}

func TestGetUnknownLetter(t *testing.T) {
	f := newLetterFixture(t)
	if _, err := f.svc.Get(context.Background(), domain.DomainOutgoing, "missing"); !errors.Is(err, ErrLetterNotFound) {
		t.Fatalf("err = %v, want ErrLetterNotFound", err)
	}
}

func TestListRejectsUnknownDomain(t *testing.T) {
	f := newLetterFixture(t)
	if _, err := f.svc.List(context.Background(), domain.LetterDomain("fax"), 0); !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("err = %v, want ErrUnknownDomain", err)
	}
}

func TestAttachRequiresExistingOwner(t *testing.T) {
	f := newLetterFixture(t)

	_, err := f.svc.Attach(context.Background(), AttachInput{
		OwnerKind: domain.DomainOutgoing,
		OwnerID:   "missing",
		Filename:  "report.pdf",
	})
	if !errors.Is(err, ErrAttachmentOwnerMissing) {
		t.Fatalf("err = %v, want ErrAttachmentOwnerMissing", err)
	}
}

func TestAttachStoresTransliteratedFilename(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	letter, err := f.svc.RegisterOutgoing(ctx, RegisterOutgoingInput{Subject: "a"})
	if err != nil {
		t.Fatal(err)
	}

	attachment, err := f.svc.Attach(ctx, AttachInput{
		OwnerKind: domain.DomainOutgoing,
		OwnerID:   letter.ID,
		Filename:  "отчёт за март.pdf",
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if attachment.Filename != "отчёт за март.pdf" {
		t.Errorf("original filename = %q, must be preserved", attachment.Filename)
	}
	if !strings.HasPrefix(attachment.StoredFilename, "otchyot_za_mart_") {
		t.Errorf("StoredFilename = %q, want transliterated prefix", attachment.StoredFilename)
	}
	if !strings.HasSuffix(attachment.StoredFilename, ".pdf") {
		t.Errorf("StoredFilename = %q, want extension preserved", attachment.StoredFilename)
	}

	listed, err := f.svc.Attachments(ctx, domain.DomainOutgoing, letter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Fatalf("attachments = %d, want 1", len(listed))
	}
}

func TestAttachRejectsUnknownOwnerKind(t *testing.T) {
	f := newLetterFixture(t)
	_, err := f.svc.Attach(context.Background(), AttachInput{OwnerKind: "fax", OwnerID: "x", Filename: "a.pdf"})
	if !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("err = %v, want ErrUnknownDomain", err)
	}
}

func TestDeleteRemovesAttachmentMetadata(t *testing.T) {
	f := newLetterFixture(t)
	ctx := context.Background()

	letter, err := f.svc.RegisterOutgoing(ctx, RegisterOutgoingInput{Subject: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Attach(ctx, AttachInput{OwnerKind: domain.DomainOutgoing, OwnerID: letter.ID, Filename: "a.pdf"}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(ctx, domain.DomainOutgoing, letter.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := f.svc.Get(ctx, domain.DomainOutgoing, letter.ID); !errors.Is(err, ErrLetterNotFound) {
		t.Error("letter still resolvable after delete")
	}
	left, err := f.svc.Attachments(ctx, domain.DomainOutgoing, letter.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("attachments = %d after delete, want 0", len(left))
	}
}
