package notify

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRenderer = NewRenderer("https://app.example.com/client-portal")

func mustRender(t *testing.T, name string, data Data, b Branding) Rendered {
	t.Helper()
	res := testRenderer.Render(name, data, b)
	require.True(t, res.IsOk(), "render %s: %s", name, res.Message())
	v, _ := res.Value()
	return v
}

func TestRender_UnknownTemplate(t *testing.T) {
	res := testRenderer.Render("doesNotExist", Data{}, Branding{})
	require.False(t, res.IsOk())
	assert.Equal(t, `Template "doesNotExist" not found`, res.Message())

	var unknown *UnknownTemplateError
	assert.ErrorAs(t, res.Err(), &unknown)
}

func TestRender_MissingFields(t *testing.T) {
	res := testRenderer.Render(TemplatePaymentReceived, Data{"client_name": "Jane"}, Branding{})
	require.False(t, res.IsOk())
	assert.Contains(t, res.Message(), "invoice_number is required")
	assert.Contains(t, res.Message(), "amount is required")
}

func TestRender_BadAmount(t *testing.T) {
	res := testRenderer.Render(TemplatePaymentReceived, Data{
		"client_name": "Jane", "invoice_number": "INV-1", "amount": "lots",
	}, Branding{})
	require.False(t, res.IsOk())
	assert.Contains(t, res.Message(), "amount must be a number")
}

func TestRender_AppointmentReminder_Telehealth(t *testing.T) {
	r := mustRender(t, TemplateAppointmentReminder, Data{
		"client_name":      "Jane Doe",
		"appointment_date": "2026-03-12",
		"appointment_time": "2:00 PM",
		"duration":         float64(50),
		"type":             "Individual Therapy",
		"modality":         "telehealth",
		"telehealth_link":  "https://meet.example.com/room/42",
	}, Branding{PracticeName: "Calm Minds"})

	assert.Equal(t, "Appointment Reminder - 3/12/2026 (Telehealth)", r.Subject)
	assert.Equal(t, "appointment_reminder", r.NotificationType)
	assert.Contains(t, r.Body, "https://meet.example.com/room/42")
	assert.Contains(t, r.Body, "5 minutes early")
	assert.NotContains(t, r.Body, "10 minutes early")
	assert.Contains(t, r.Body, "Duration: 50 minutes")
	assert.Contains(t, r.Body, "Modality: Telehealth (Video)")
	assert.Contains(t, r.HTML, `href="https://meet.example.com/room/42"`)
	assert.Contains(t, r.HTML, "5 minutes early")
}

func TestRender_AppointmentReminder_InPerson(t *testing.T) {
	r := mustRender(t, TemplateAppointmentReminder, Data{
		"client_name":      "Jane Doe",
		"appointment_date": "2026-03-12",
		"appointment_time": "2:00 PM",
		"modality":         "in-person",
		"telehealth_link":  "https://meet.example.com/room/42",
	}, Branding{})

	assert.Equal(t, "Appointment Reminder - 3/12/2026", r.Subject)
	assert.Contains(t, r.Body, "10 minutes early")
	assert.NotContains(t, r.Body, "5 minutes early")
	assert.NotContains(t, r.Body, "https://")
	assert.NotContains(t, r.HTML, "meet.example.com")
	assert.Contains(t, r.Body, "Modality: In-Person")
}

func TestRender_CurrencyTwoDecimals(t *testing.T) {
	tests := []struct {
		amount any
		want   string
	}{
		{float64(150), "$150.00"},
		{"99.5", "$99.50"},
		{decimal.RequireFromString("12.345"), "$12.35"},
		{int64(7), "$7.00"},
	}
	for _, tt := range tests {
		r := mustRender(t, TemplatePaymentReceived, Data{
			"client_name": "Jane", "invoice_number": "INV-9", "amount": tt.amount,
		}, Branding{})
		assert.Contains(t, r.Body, "payment of "+tt.want+" for invoice INV-9")
	}
}

func TestRender_BrandingDefaults(t *testing.T) {
	r := mustRender(t, TemplateAutopayEnabled, Data{"client_name": "Jane"}, Branding{})

	assert.True(t, strings.HasSuffix(r.Body, "Best regards,\nYour Practice"))
	assert.Contains(t, r.HTML, "Your Practice")
	assert.NotContains(t, r.HTML, "Contact Information")
	assert.NotContains(t, r.HTML, "Phone:")
}

func TestRender_BrandingOmitsMissingFields(t *testing.T) {
	r := mustRender(t, TemplateAutopayEnabled, Data{"client_name": "Jane"}, Branding{
		PracticeName: "Calm Minds",
		Phone:        "555-0100",
	})

	assert.Contains(t, r.HTML, "Contact Information")
	assert.Contains(t, r.HTML, "Phone: 555-0100")
	assert.NotContains(t, r.HTML, "Email:")
	assert.NotContains(t, r.HTML, "Website:")
	assert.Contains(t, r.HTML, "This is a secure, encrypted communication from Calm Minds")
}

func TestRender_EscapesPayload(t *testing.T) {
	r := mustRender(t, TemplateAutopayEnabled, Data{"client_name": "<script>alert(1)</script>"}, Branding{})
	assert.NotContains(t, r.HTML, "<script>")
	assert.Contains(t, r.HTML, "&lt;script&gt;")
}

func TestRender_DocumentAssigned(t *testing.T) {
	r := mustRender(t, TemplateDocumentAssigned, Data{
		"client_name": "Jane", "document_name": "Intake Form", "access_code": "839201",
	}, Branding{})

	assert.Equal(t, "New Document to Complete", r.Subject)
	assert.Contains(t, r.Body, "Access Code: 839201")
	assert.Contains(t, r.Body, "https://app.example.com/client-portal")
	assert.Contains(t, r.Body, "- Do not share this code with anyone")
	assert.Contains(t, r.Body, "expire in 7 days")
}

func TestRender_PaymentRequest(t *testing.T) {
	r := mustRender(t, TemplatePaymentRequest, Data{
		"client_name": "Jane",
		"invoice_id":  "1042",
		"amount":      float64(120),
		"payment_url": "https://buy.stripe.com/test_abc",
		"description": "March sessions",
	}, Branding{PracticeName: "Calm Minds"})

	assert.Equal(t, "Invoice #1042 - Payment Request", r.Subject)
	assert.Equal(t, "payment_request", r.NotificationType)
	assert.Contains(t, r.Body, "This payment link will expire in 30 days.")
	assert.Equal(t, "Payment Request: Invoice #1042 for $120.00. Due upon receipt. Pay securely: https://buy.stripe.com/test_abc", r.SMSBody())
}

func TestRender_PaymentRequest_DueDate(t *testing.T) {
	r := mustRender(t, TemplatePaymentRequest, Data{
		"client_name": "Jane", "invoice_id": "7", "amount": "10",
		"payment_url": "https://buy.stripe.com/x", "due_date": "2026-04-01", "expiry_days": float64(14),
	}, Branding{})

	assert.Contains(t, r.SMSBody(), "Due by: 4/1/2026.")
	assert.Contains(t, r.Body, "expire in 14 days")
}

func TestRender_DefaultSMSBody(t *testing.T) {
	r := mustRender(t, TemplateAutopayEnabled, Data{"client_name": "Jane"}, Branding{})
	assert.Equal(t, r.Subject+"\n\n"+r.Body, r.SMSBody())
}

func TestRender_EveryTemplateDeclaresType(t *testing.T) {
	for _, name := range testRenderer.Names() {
		def := templateDefs[name]
		assert.NotEmpty(t, def.notificationType, name)
	}
	assert.Len(t, testRenderer.Names(), 11)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "3/5/2026", formatDate("2026-03-05"))
	assert.Equal(t, "3/5/2026", formatDate("2026-03-05T14:00:00Z"))
	assert.Equal(t, "next Tuesday", formatDate("next Tuesday"))
}
