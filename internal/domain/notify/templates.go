package notify

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sessionably/practice/internal/platform/result"
)

// Template names accepted by Renderer.Render.
const (
	TemplatePaymentReceived     = "paymentReceived"
	TemplatePaymentFailed       = "paymentFailed"
	TemplateRefundProcessed     = "refundProcessed"
	TemplateInvoiceCreated      = "invoiceCreated"
	TemplateAutopayEnabled      = "autopayEnabled"
	TemplateAutopayFailed       = "autopayFailed"
	TemplateAppointmentReminder = "appointmentReminder"
	TemplateDocumentAssigned    = "documentAssigned"
	TemplatePaymentRequest      = "paymentRequest"
	TemplatePortalVerification  = "portalVerification"
	TemplateWelcome             = "welcome"
)

// Data is a template payload, usually decoded from a JSON request body.
type Data map[string]any

// Rendered is the content produced for one notification.
type Rendered struct {
	Template         string `json:"template"`
	NotificationType string `json:"notification_type"`
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	HTML             string `json:"html"`
	SMS              string `json:"sms"`
}

// SMSBody is the text sent over SMS.
func (r Rendered) SMSBody() string {
	if r.SMS != "" {
		return r.SMS
	}
	return r.Subject + "\n\n" + r.Body
}

type templateDef struct {
	notificationType string
	build            func(f *fields, b Branding, portalURL string) *message
}

var templateDefs = map[string]templateDef{
	TemplatePaymentReceived:     {"payment_received", buildPaymentReceived},
	TemplatePaymentFailed:       {"payment_failed", buildPaymentFailed},
	TemplateRefundProcessed:     {"refund_processed", buildRefundProcessed},
	TemplateInvoiceCreated:      {"invoice_created", buildInvoiceCreated},
	TemplateAutopayEnabled:      {"autopay_enabled", buildAutopayEnabled},
	TemplateAutopayFailed:       {"autopay_failed", buildAutopayFailed},
	TemplateAppointmentReminder: {"appointment_reminder", buildAppointmentReminder},
	TemplateDocumentAssigned:    {"document_assigned", buildDocumentAssigned},
	TemplatePaymentRequest:      {"payment_request", buildPaymentRequest},
	TemplatePortalVerification:  {"portal_verification", buildPortalVerification},
	TemplateWelcome:             {"welcome", buildWelcome},
}

// Renderer turns a template name and payload into branded content.
type Renderer struct {
	portalURL string
}

func NewRenderer(portalURL string) *Renderer {
	return &Renderer{portalURL: portalURL}
}

// Names lists the known templates in sorted order.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(templateDefs))
	for name := range templateDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render produces subject, plain body, HTML and SMS text. Unknown templates
// and missing required fields are reported as failures, never panics.
func (r *Renderer) Render(name string, data Data, b Branding) result.Result[Rendered] {
	def, ok := templateDefs[name]
	if !ok {
		return result.FromError[Rendered](&UnknownTemplateError{Name: name})
	}

	f := &fields{data: data}
	msg := def.build(f, b, r.portalURL)
	if len(f.problems) > 0 {
		return result.FromError[Rendered](&InvalidDataError{Template: name, Problems: f.problems})
	}

	html, err := msg.html(b)
	if err != nil {
		return result.FromError[Rendered](fmt.Errorf("render %s: %w", name, err))
	}
	out := Rendered{
		Template:         name,
		NotificationType: def.notificationType,
		Subject:          msg.subject,
		Body:             msg.text(b),
		HTML:             html,
	}
	if msg.sms != "" {
		out.SMS = msg.sms
	} else {
		out.SMS = out.SMSBody()
	}
	return result.Ok(out)
}

// UnknownTemplateError is the failure cause when no template has the name.
type UnknownTemplateError struct {
	Name string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("Template %q not found", e.Name)
}

// InvalidDataError lists the payload fields a template could not use.
type InvalidDataError struct {
	Template string
	Problems []string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("template %q: %s", e.Template, strings.Join(e.Problems, "; "))
}

// -- payload access --

// fields reads a payload and collects every missing or malformed value so
// one render reports all of them.
type fields struct {
	data     Data
	problems []string
}

func (f *fields) raw(key string) (any, bool) {
	v, ok := f.data[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func (f *fields) str(key string) string {
	v, ok := f.raw(key)
	if !ok {
		f.problems = append(f.problems, key+" is required")
		return ""
	}
	return stringify(v)
}

func (f *fields) opt(key string) string {
	v, ok := f.raw(key)
	if !ok {
		return ""
	}
	return stringify(v)
}

func (f *fields) optInt(key string, def int) int {
	v, ok := f.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(stringify(v))
	if err != nil {
		f.problems = append(f.problems, key+" must be a whole number")
		return def
	}
	return n
}

// money returns the amount formatted as "$12.50".
func (f *fields) money(key string) string {
	v, ok := f.raw(key)
	if !ok {
		f.problems = append(f.problems, key+" is required")
		return ""
	}
	d, err := toDecimal(v)
	if err != nil {
		f.problems = append(f.problems, key+" must be a number")
		return ""
	}
	return FormatMoney(d)
}

func (f *fields) date(key string) string {
	return formatDate(f.str(key))
}

// FormatMoney renders an amount with a dollar sign and two decimals.
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(strings.TrimPrefix(n, "$")))
	}
	return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format(time.RFC3339)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// formatDate renders ISO dates as M/D/YYYY. Anything else is shown as given.
func formatDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("1/2/2006")
		}
	}
	return s
}

func dear(name string) string {
	return "Dear " + name + ","
}

// -- templates --

func buildPaymentReceived(f *fields, _ Branding, _ string) *message {
	name, invoice, amount := f.str("client_name"), f.str("invoice_number"), f.money("amount")
	return &message{
		subject:  "Payment Received - Invoice " + invoice,
		greeting: dear(name),
		intro:    []string{fmt.Sprintf("We have received your payment of %s for invoice %s.", amount, invoice)},
		details:  &details{Title: "Payment Confirmed", Rows: []row{{"Invoice", invoice}, {"Amount", amount}}},
		notes: []string{
			"Thank you for your payment!",
			"If you have any questions, please don't hesitate to contact us.",
		},
	}
}

func buildPaymentFailed(f *fields, _ Branding, _ string) *message {
	name, invoice, reason := f.str("client_name"), f.str("invoice_number"), f.str("error")
	return &message{
		subject:  "Payment Failed - Invoice " + invoice,
		greeting: dear(name),
		intro:    []string{"We were unable to process your payment for invoice " + invoice + "."},
		details:  &details{Title: "Payment Failed", Rows: []row{{"Invoice", invoice}, {"Error", reason}}},
		notes:    []string{"Please update your payment method or contact us to resolve this issue."},
	}
}

func buildRefundProcessed(f *fields, _ Branding, _ string) *message {
	name, invoice, amount := f.str("client_name"), f.str("invoice_number"), f.money("refund_amount")
	return &message{
		subject:  "Refund Processed - Invoice " + invoice,
		greeting: dear(name),
		intro:    []string{fmt.Sprintf("A refund of %s has been processed for invoice %s.", amount, invoice)},
		details:  &details{Title: "Refund Processed", Rows: []row{{"Invoice", invoice}, {"Refund Amount", amount}}},
		notes: []string{
			"The refund will appear on your account within 5-10 business days.",
			"If you have any questions, please contact us.",
		},
	}
}

func buildInvoiceCreated(f *fields, _ Branding, _ string) *message {
	name, invoice := f.str("client_name"), f.str("invoice_number")
	amount, due := f.money("amount"), f.date("due_date")
	return &message{
		subject:  "New Invoice - " + invoice,
		greeting: dear(name),
		intro:    []string{"A new invoice has been created for you:"},
		details: &details{Title: "Invoice Details", Rows: []row{
			{"Invoice Number", invoice},
			{"Amount", amount},
			{"Due Date", due},
		}},
		notes: []string{"Please log in to view and pay your invoice."},
	}
}

func buildAutopayEnabled(f *fields, _ Branding, _ string) *message {
	return &message{
		subject:  "Autopay Enabled",
		greeting: dear(f.str("client_name")),
		intro: []string{
			"Autopay has been enabled for your account. Future invoices will be automatically charged to your default payment method.",
		},
		notes: []string{"You can manage your autopay settings at any time by logging into your account."},
	}
}

func buildAutopayFailed(f *fields, _ Branding, _ string) *message {
	name, invoice, reason := f.str("client_name"), f.str("invoice_number"), f.str("error")
	return &message{
		subject:  "Autopay Failed - Invoice " + invoice,
		greeting: dear(name),
		intro:    []string{"We were unable to process your automatic payment for invoice " + invoice + "."},
		details:  &details{Title: "Autopay Failed", Rows: []row{{"Invoice", invoice}, {"Error", reason}}},
		notes:    []string{"Please update your payment method or contact us to resolve this issue."},
	}
}

func buildAppointmentReminder(f *fields, _ Branding, _ string) *message {
	name := f.str("client_name")
	date := f.date("appointment_date")
	clock := f.str("appointment_time")
	telehealth := strings.EqualFold(f.opt("modality"), "telehealth")
	link := f.opt("telehealth_link")

	rows := []row{{"Date", date}, {"Time", clock}}
	if d := f.opt("duration"); d != "" {
		rows = append(rows, row{"Duration", d + " minutes"})
	}
	if t := f.opt("type"); t != "" {
		rows = append(rows, row{"Type", t})
	}
	modality := "In-Person"
	if telehealth {
		modality = "Telehealth (Video)"
	}
	rows = append(rows, row{"Modality", modality})

	m := &message{
		subject:  "Appointment Reminder - " + date,
		greeting: dear(name),
		intro:    []string{"This is a reminder that you have an appointment scheduled for:"},
		details:  &details{Title: "Appointment Details", Rows: rows},
	}
	switch {
	case telehealth:
		m.subject += " (Telehealth)"
		if link != "" {
			m.action = &action{Lead: "Join your video session here:", Label: "Join Video Session", URL: link}
			m.notes = []string{"Please join 5 minutes early to test your connection."}
		}
	default:
		m.notes = []string{"Please arrive 10 minutes early."}
	}
	return m
}

func buildDocumentAssigned(f *fields, _ Branding, portalURL string) *message {
	name, doc, code := f.str("client_name"), f.str("document_name"), f.str("access_code")
	return &message{
		subject:  "New Document to Complete",
		greeting: dear(name),
		intro:    []string{"A new document has been assigned to you: " + doc},
		action:   &action{Lead: "To complete this document securely, please visit:", Label: "Open Client Portal", URL: portalURL},
		details: &details{Title: "Secure Access Information", Rows: []row{
			{"Access Code", code},
			{"Expires", "7 days"},
		}},
		notes: []string{"This code will expire in 7 days for security purposes."},
		bullets: &bullets{Title: "For your protection:", Items: []string{
			"Do not share this code with anyone",
			"Access the portal only from a secure device",
			"Contact us if you did not request this document",
		}},
	}
}

func buildPaymentRequest(f *fields, b Branding, _ string) *message {
	name, invoice := f.str("client_name"), f.str("invoice_id")
	amount, url := f.money("amount"), f.str("payment_url")
	expiry := f.optInt("expiry_days", 30)

	rows := []row{{"Invoice", "#" + invoice}}
	if desc := f.opt("description"); desc != "" {
		rows = append(rows, row{"Description", desc})
	}
	rows = append(rows, row{"Amount", amount})

	due := "Due upon receipt"
	if d := f.opt("due_date"); d != "" {
		due = "Due by: " + formatDate(d)
		rows = append(rows, row{"Due Date", formatDate(d)})
	} else {
		rows = append(rows, row{"Due Date", "Upon receipt"})
	}

	return &message{
		subject:  "Invoice #" + invoice + " - Payment Request",
		greeting: dear(name),
		intro:    []string{"You have a new payment request from " + b.Name() + "."},
		details:  &details{Title: "Payment Details", Rows: rows},
		action:   &action{Lead: "Pay securely online:", Label: "Pay Invoice", URL: url},
		notes:    []string{fmt.Sprintf("This payment link will expire in %d days.", expiry)},
		sms:      fmt.Sprintf("Payment Request: Invoice #%s for %s. %s. Pay securely: %s", invoice, amount, due, url),
	}
}

func buildPortalVerification(f *fields, _ Branding, _ string) *message {
	greeting := "Hello,"
	if name := f.opt("client_name"); name != "" {
		greeting = dear(name)
	}
	return &message{
		subject:  "Verify Your Client Portal Account",
		greeting: greeting,
		intro: []string{
			"Thank you for creating your client portal account. Please verify your email address by clicking the link below:",
		},
		action: &action{Lead: "Verify your email here:", Label: "Verify Email", URL: f.str("verification_url")},
		notes:  []string{"This link will expire in 24 hours."},
	}
}

func buildWelcome(f *fields, _ Branding, _ string) *message {
	plan := f.str("plan_name")
	rows := []row{{"Plan", plan}}
	if trial := f.opt("trial_end"); trial != "" {
		rows = append(rows, row{"Trial Ends", formatDate(trial)})
	}
	m := &message{
		subject:  "Welcome to Sessionably",
		greeting: dear(f.str("name")),
		intro:    []string{"Your practice account is ready and your free trial of the " + plan + " plan has started."},
		details:  &details{Title: "Account Details", Rows: rows},
		notes:    []string{"If you have any questions, reply to this email and our team will help."},
	}
	if login := f.opt("login_url"); login != "" {
		m.action = &action{Lead: "Sign in to get started:", Label: "Sign In", URL: login}
	}
	return m
}
