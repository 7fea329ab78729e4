// Package certificate renders the proof-of-contribution PDF.
package certificate

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/animaisueg/pledge-service/internal/domain"
)

type rgb struct{ r, g, b int }

var (
	colorPrimary   = rgb{56, 142, 60}   // #388E3C
	colorSecondary = rgb{255, 160, 0}   // #FFA000
	colorText      = rgb{55, 71, 79}    // #37474F
	colorMuted     = rgb{128, 128, 128} // footer
)

const (
	marginX      = 50.0
	nameFontSize = 32.0
	minNameSize  = 14.0
)

// Options configures fixed presentation details.
type Options struct {
	Location *time.Location
	Title    string
	Closing  string
}

// Renderer implements domain.CertificateRenderer with fpdf.
type Renderer struct {
	loc     *time.Location
	title   string
	closing string
}

// NewRenderer applies defaults for the animal-support campaign.
func NewRenderer(opts Options) *Renderer {
	r := &Renderer{
		loc:     opts.Location,
		title:   opts.Title,
		closing: opts.Closing,
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.title == "" {
		r.title = "Certificado de Doação"
	}
	if r.closing == "" {
		r.closing = "Sua generosidade e amor pelos animais fazem toda a diferença!"
	}
	return r
}

// Render draws one A4 page. Content streams are left uncompressed.
func (r *Renderer) Render(contributorName string, amount domain.Amount, issuedAt time.Time) ([]byte, error) {
	name := strings.TrimSpace(contributorName)
	if name == "" {
		return nil, fmt.Errorf("%w: contributor name is empty", domain.ErrRender)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: amount is empty", domain.ErrRender)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(issuedAt)
	pdf.SetTitle(r.title, true)
	pdf.SetCreator("pledge-service", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width, height := pdf.GetPageSize()

	draw := func(text string, style string, size float64, c rgb, y float64) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetTextColor(c.r, c.g, c.b)
		pdf.Text(marginX, y, tr(text))
	}

	draw(r.title, "B", 38, colorPrimary, 100)
	draw("Com imensa gratidão, certificamos que", "", 18, colorText, 180)

	pdf.SetFont("Helvetica", "B", nameFontSize)
	size := nameFontSize
	for size > minNameSize && pdf.GetStringWidth(tr(name)) > width-2*marginX {
		size--
		pdf.SetFontSize(size)
	}
	draw(name, "B", size, colorSecondary, 240)

	draw(fmt.Sprintf("realizou uma doação no valor de %s.", FormatBRL(amount)), "", 18, colorText, 300)
	draw(r.closing, "", 16, colorText, 350)
	draw("Emitido em: "+FormatDate(issuedAt, r.loc), "", 12, colorMuted, height-80)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	return buf.Bytes(), nil
}
