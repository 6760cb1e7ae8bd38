package printer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ESC/POS control sequences
var (
	escInit      = []byte{0x1B, 0x40}
	escBoldOn    = []byte{0x1B, 0x45, 0x01}
	escBoldOff   = []byte{0x1B, 0x45, 0x00}
	escAlignLeft = []byte{0x1B, 0x61, 0x00}
	escAlignMid  = []byte{0x1B, 0x61, 0x01}
	escCut       = []byte{0x1D, 0x56, 0x00}
)

const ticketWidth = 42

// TicketRow is one product line on a closing ticket
type TicketRow struct {
	Name     string
	Quantity int
	Total    decimal.Decimal
}

// ClosingTicket is the printable end-of-session summary
type ClosingTicket struct {
	StoreName            string
	SessionID            string
	OpenedAt             time.Time
	ClosedAt             time.Time
	OrderCount           int
	Rows                 []TicketRow
	TotalBeforeDiscounts decimal.Decimal
	TreatsAmount         decimal.Decimal
	CouponCount          int
	CouponAmount         decimal.Decimal
	FinalTotal           decimal.Decimal
	CashAmount           decimal.Decimal
	CardAmount           decimal.Decimal
}

// FormatClosingTicket renders a closing ticket as ESC/POS bytes
func FormatClosingTicket(t *ClosingTicket) []byte {
	var buf bytes.Buffer

	buf.Write(escInit)
	buf.Write(escAlignMid)
	buf.Write(escBoldOn)
	buf.WriteString(t.StoreName + "\n")
	buf.WriteString("REGISTER CLOSING\n")
	buf.Write(escBoldOff)
	buf.WriteString(shortID(t.SessionID) + "\n\n")

	buf.Write(escAlignLeft)
	buf.WriteString(labelValue("Opened", t.OpenedAt.Format("02/01/2006 15:04")))
	buf.WriteString(labelValue("Closed", t.ClosedAt.Format("02/01/2006 15:04")))
	buf.WriteString(labelValue("Orders", fmt.Sprintf("%d", t.OrderCount)))
	buf.WriteString(divider())

	for _, row := range t.Rows {
		qty := fmt.Sprintf("%dx", row.Quantity)
		buf.WriteString(productLine(qty+" "+row.Name, row.Total.StringFixed(2)))
	}
	buf.WriteString(divider())

	buf.WriteString(labelValue("Subtotal", t.TotalBeforeDiscounts.StringFixed(2)))
	buf.WriteString(labelValue("Treats", "-"+t.TreatsAmount.StringFixed(2)))
	buf.WriteString(labelValue(fmt.Sprintf("Coupons (%d)", t.CouponCount), "-"+t.CouponAmount.StringFixed(2)))
	buf.Write(escBoldOn)
	buf.WriteString(labelValue("TOTAL", t.FinalTotal.StringFixed(2)))
	buf.Write(escBoldOff)

	if !t.CashAmount.IsZero() || !t.CardAmount.IsZero() {
		buf.WriteString(divider())
		buf.WriteString(labelValue("Cash", t.CashAmount.StringFixed(2)))
		buf.WriteString(labelValue("Card", t.CardAmount.StringFixed(2)))
	}

	buf.WriteString("\n\n\n")
	buf.Write(escCut)
	return buf.Bytes()
}

func divider() string {
	return strings.Repeat("-", ticketWidth) + "\n"
}

// labelValue renders "label ....... value" padded to the ticket width
func labelValue(label, value string) string {
	pad := ticketWidth - len(label) - len(value)
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + value + "\n"
}

// productLine truncates long product names so the amount column stays intact
func productLine(name, amount string) string {
	maxName := ticketWidth - len(amount) - 1
	if len(name) > maxName {
		name = name[:maxName]
	}
	return labelValue(name, amount)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
