package pdf

import (
	"bytes"
	"context"
	"io"
	"time"
	"unicode"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/studioledger/internal/ledger/domain"
)

const dateLayout = "02 Jan 2006"

// StatementData is a client ledger with the presentation details around it.
type StatementData struct {
	StudioName     string
	CurrencyCode   string
	CurrencySymbol string
	Location       *time.Location
	GeneratedAt    time.Time
	Ledger         ledgerdomain.ClientLedger
}

// money uses the currency code when the symbol is outside the core PDF fonts.
func (d StatementData) money(v decimal.Decimal) string {
	symbol := d.CurrencySymbol
	for _, r := range symbol {
		if r > unicode.MaxLatin1 {
			symbol = ""
			break
		}
	}
	return FormatAmount(v, d.CurrencyCode, symbol)
}

func (d StatementData) date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

// GenerateStatement renders the account statement of one client.
func (p *PDFProvider) GenerateStatement(_ context.Context, data StatementData) (io.Reader, error) {
	ledger := data.Ledger
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Statement of account", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.StudioName, props.Text{
			Size:  11,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Client: "+ledger.ClientName, props.Text{Style: fontstyle.Bold}),
			text.New("Lead ID: "+ledger.LeadID, props.Text{Top: 5}),
			text.New("Status: "+string(ledger.Status), props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Issued: "+data.date(&data.GeneratedAt), props.Text{Align: align.Right}),
			text.New("Balance due: "+data.date(ledger.BalanceDueDate), props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(4, "Package", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Paid", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Center}),
		text.NewCol(4, "Remaining", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(4, data.money(ledger.Budget), props.Text{Size: 11}),
		text.NewCol(4, data.money(ledger.TotalPaid), props.Text{Size: 11, Align: align.Center}),
		text.NewCol(4, data.money(ledger.Remaining), props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(4, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(3, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Type", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Method", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Reference", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if len(ledger.Payments) == 0 {
		m.AddRow(10, text.NewCol(12, "No payments recorded.", props.Text{Size: 9, Style: fontstyle.Italic}))
	}
	for _, payment := range ledger.Payments {
		m.AddRow(8,
			text.NewCol(3, data.date(payment.PaymentDate), props.Text{Size: 9}),
			text.NewCol(2, string(payment.PaymentType), props.Text{Size: 9}),
			text.NewCol(2, payment.PaymentMethod, props.Text{Size: 9}),
			text.NewCol(3, payment.TransactionID, props.Text{Size: 9}),
			text.NewCol(2, data.money(payment.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
