package domain

import (
	"errors"
	"testing"
)

func TestFormatNumberEncodings(t *testing.T) {
	cases := []struct {
		name     string
		domain   LetterDomain
		sequence int64
		year     int
		display  string
		fs       string
	}{
		{"outgoing", DomainOutgoing, 17, 2026, "Н-17/26", "H-17/26"},
		{"incoming", DomainIncoming, 3, 2026, "ВХ-3/26", "VH-3/26"},
		{"first of year", DomainOutgoing, 1, 2030, "Н-1/30", "H-1/30"},
		{"single digit year", DomainIncoming, 42, 2009, "ВХ-42/09", "VH-42/09"},
		{"century wrap", DomainOutgoing, 5, 2100, "Н-5/00", "H-5/00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatNumber(tc.domain, tc.sequence, tc.year); got != tc.display {
				t.Errorf("FormatNumber = %q, want %q", got, tc.display)
			}
			if got := FormatNumberFS(tc.domain, tc.sequence, tc.year); got != tc.fs {
				t.Errorf("FormatNumberFS = %q, want %q", got, tc.fs)
			}
		})
	}
}

func TestParseNumberRoundTrip(t *testing.T) {
	numbers := []DocumentNumber{
		{Domain: DomainOutgoing, Sequence: 1, Year: 2026},
		{Domain: DomainOutgoing, Sequence: 999, Year: 2099},
		{Domain: DomainIncoming, Sequence: 12, Year: 2026},
		{Domain: DomainIncoming, Sequence: 1, Year: 2001},
	}

	for _, want := range numbers {
		display, err := ParseNumber(want.Display())
		if err != nil {
			t.Fatalf("ParseNumber(%q): %v", want.Display(), err)
		}
		if display != want {
			t.Errorf("display round trip = %+v, want %+v", display, want)
		}

		fs, err := ParseNumber(want.FileSystem())
		if err != nil {
			t.Fatalf("ParseNumber(%q): %v", want.FileSystem(), err)
		}
		if fs != want {
			t.Errorf("filesystem round trip = %+v, want %+v", fs, want)
		}
	}
}

func TestParseNumberBothEncodingsAgree(t *testing.T) {
	display, err := ParseNumber("Н-7/26")
	if err != nil {
		t.Fatal(err)
	}
	fs, err := ParseNumber("H-7/26")
	if err != nil {
		t.Fatal(err)
	}
	if display != fs {
		t.Errorf("encodings parse to different triples: %+v vs %+v", display, fs)
	}
}

func TestParseNumberRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"Н-17",
		"17/26",
		"X-17/26",
		"Н-17/2026",
		"Н-/26",
		"Н-17/2",
		"н-17/26",
		"vh-17/26",
		" Н-17/26",
		"Н-17/26 ",
	}

	for _, s := range bad {
		if _, err := ParseNumber(s); !errors.Is(err, ErrInvalidNumber) {
			t.Errorf("ParseNumber(%q) err = %v, want ErrInvalidNumber", s, err)
		}
	}
}

func TestPlaceholderNumber(t *testing.T) {
	if got := PlaceholderNumber(DomainOutgoing, 2026); got != "Н-0/26" {
		t.Errorf("outgoing placeholder = %q", got)
	}
	if got := PlaceholderNumber(DomainIncoming, 2026); got != "ВХ-0/26" {
		t.Errorf("incoming placeholder = %q", got)
	}
}
