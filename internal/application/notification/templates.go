package notification

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/opshub/backend/internal/domain/finance"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrUnknownCategory = errors.New("notification: unknown category")
	ErrPayloadMismatch = errors.New("notification: payload does not match category")
)

// Message is a rendered email body
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// WeeklyReportPayload summarizes the previous seven days
type WeeklyReportPayload struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Revenue         int64
	Expenses        int64
	NetCashFlow     int64
	CashPosition    int64
	OverdueInvoices int
	OverdueAmount   int64
	NewTasks        int
}

// LowCashPayload reports a cash position under the alert threshold
type LowCashPayload struct {
	CurrentCash int64
	Threshold   int64
}

// OverdueInvoicePayload lists the invoices past due
type OverdueInvoicePayload struct {
	Invoices []*finance.Invoice
}

// Total is the sum of the overdue amounts
func (p OverdueInvoicePayload) Total() int64 {
	return finance.TotalAmount(p.Invoices)
}

// IntegrationFailurePayload describes a failed sync
type IntegrationFailurePayload struct {
	Platform   string
	Reason     string
	OccurredAt time.Time
}

var printer = message.NewPrinter(language.English)

// FormatCurrency renders minor units as dollars, e.g. 400000 -> "$4,000.00"
func FormatCurrency(cents int64) string {
	d := decimal.New(cents, -2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.IntPart()
	frac := d.Sub(decimal.NewFromInt(whole)).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, printer.Sprintf("%d", whole), frac)
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

var funcs = map[string]any{
	"money": FormatCurrency,
	"date":  formatDate,
	"lastDay": func(end time.Time) time.Time {
		return end.AddDate(0, 0, -1)
	},
}

type templateSet struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func mustSet(name, subject, html, text string) templateSet {
	return templateSet{
		subject: texttemplate.Must(texttemplate.New(name + ".subject").Funcs(funcs).Parse(subject)),
		html:    htmltemplate.Must(htmltemplate.New(name + ".html").Funcs(funcs).Parse(html)),
		text:    texttemplate.Must(texttemplate.New(name + ".text").Funcs(funcs).Parse(text)),
	}
}

var (
	weeklyReportTemplates = mustSet("weeklyReport",
		`Weekly report for {{.Name}}: {{date .P.PeriodStart}} to {{date (lastDay .P.PeriodEnd)}}`,
		`<h1>Your week at {{.Name}}</h1>
<p>{{date .P.PeriodStart}} to {{date (lastDay .P.PeriodEnd)}}</p>
<table>
<tr><td>Revenue</td><td>{{money .P.Revenue}}</td></tr>
<tr><td>Expenses</td><td>{{money .P.Expenses}}</td></tr>
<tr><td>Net cash flow</td><td>{{money .P.NetCashFlow}}</td></tr>
<tr><td>Cash position</td><td>{{money .P.CashPosition}}</td></tr>
<tr><td>Overdue invoices</td><td>{{.P.OverdueInvoices}} ({{money .P.OverdueAmount}})</td></tr>
<tr><td>New tasks</td><td>{{.P.NewTasks}}</td></tr>
</table>`,
		`Your week at {{.Name}}
{{date .P.PeriodStart}} to {{date (lastDay .P.PeriodEnd)}}

Revenue:          {{money .P.Revenue}}
Expenses:         {{money .P.Expenses}}
Net cash flow:    {{money .P.NetCashFlow}}
Cash position:    {{money .P.CashPosition}}
Overdue invoices: {{.P.OverdueInvoices}} ({{money .P.OverdueAmount}})
New tasks:        {{.P.NewTasks}}
`)

	lowCashTemplates = mustSet("lowCashAlert",
		`Low cash alert: {{money .P.CurrentCash}} available`,
		`<h1>Low cash alert</h1>
<p>Hi {{.Name}}, your cash position is <strong>{{money .P.CurrentCash}}</strong>, below your alert level of {{money .P.Threshold}}.</p>`,
		`Low cash alert

Hi {{.Name}}, your cash position is {{money .P.CurrentCash}}, below your alert level of {{money .P.Threshold}}.
`)

	overdueTemplates = mustSet("overdueInvoices",
		`{{len .P.Invoices}} overdue invoice{{if ne (len .P.Invoices) 1}}s{{end}} totalling {{money .P.Total}}`,
		`<h1>Overdue invoices</h1>
<p>Hi {{.Name}}, these invoices are past due:</p>
<ul>
{{range .P.Invoices}}<li>{{.Client}}: {{money .Amount}}, due {{date .DueDate}}</li>
{{end}}</ul>`,
		`Overdue invoices

Hi {{.Name}}, these invoices are past due:
{{range .P.Invoices}}- {{.Client}}: {{money .Amount}}, due {{date .DueDate}}
{{end}}`)

	integrationFailureTemplates = mustSet("integrationFailure",
		`{{.P.Platform}} sync failed`,
		`<h1>{{.P.Platform}} sync failed</h1>
<p>Hi {{.Name}}, we could not sync your {{.P.Platform}} account on {{date .P.OccurredAt}}.</p>
<p>{{.P.Reason}}</p>
<p>If the problem persists, reconnect the integration from your dashboard.</p>`,
		`{{.P.Platform}} sync failed

Hi {{.Name}}, we could not sync your {{.P.Platform}} account on {{date .P.OccurredAt}}.
{{.P.Reason}}

If the problem persists, reconnect the integration from your dashboard.
`)
)

type templateData struct {
	Name string
	P    any
}

// Render builds the email for category. It performs no I/O.
func Render(category identity.NotificationCategory, tenant *identity.User, payload any) (Message, error) {
	var set templateSet
	switch category {
	case identity.CategoryWeeklyReport:
		if _, ok := payload.(WeeklyReportPayload); !ok {
			return Message{}, fmt.Errorf("%w: %s", ErrPayloadMismatch, category)
		}
		set = weeklyReportTemplates
	case identity.CategoryLowCashAlert:
		if _, ok := payload.(LowCashPayload); !ok {
			return Message{}, fmt.Errorf("%w: %s", ErrPayloadMismatch, category)
		}
		set = lowCashTemplates
	case identity.CategoryOverdueInvoices:
		if _, ok := payload.(OverdueInvoicePayload); !ok {
			return Message{}, fmt.Errorf("%w: %s", ErrPayloadMismatch, category)
		}
		set = overdueTemplates
	case identity.CategoryIntegrationFailure:
		if _, ok := payload.(IntegrationFailurePayload); !ok {
			return Message{}, fmt.Errorf("%w: %s", ErrPayloadMismatch, category)
		}
		set = integrationFailureTemplates
	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	data := templateData{Name: tenant.DisplayName(), P: payload}

	var subject, html, text bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", category, err)
	}
	if err := set.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", category, err)
	}
	if err := set.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", category, err)
	}

	return Message{
		Subject: strings.TrimSpace(subject.String()),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
