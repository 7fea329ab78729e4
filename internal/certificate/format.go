package certificate

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/animaisueg/pledge-service/internal/domain"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders an amount the way Brazilian receipts do, e.g. "R$ 1.234,50".
func FormatBRL(a domain.Amount) string {
	f, _ := a.Decimal().Float64()
	return printer.Sprintf("R$ %v", number.Decimal(f, number.Scale(2)))
}

// FormatDate renders a dd/mm/yyyy date in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006")
}

// Filename derives the attachment name for a contributor, folded to ASCII.
func Filename(contributorName string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, contributorName)
	if err != nil {
		folded = contributorName
	}
	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	name := strings.TrimRight(b.String(), "-")
	if name == "" {
		name = "Doador"
	}
	return "Certificado-Doacao-" + name + ".pdf"
}
