package notify

import (
	"testing"

	"github.com/google/uuid"
)

var allTypes = []string{
	"appointment_reminder", "appointment_confirmation", "invoice_created", "invoice_reminder",
	"payment_request", "payment_received", "payment_failed", "refund_processed",
	"autopay_enabled", "autopay_failed", "document_assigned", "document_update",
	"marketing", "portal_verification", "something_new",
}

func allOn() *ContactPreferences {
	return &ContactPreferences{
		EmailNotifications: true, SMSNotifications: true,
		EmailAppointmentReminders: true, EmailAppointmentConfirmations: true, EmailInvoiceReminders: true,
		EmailPaymentReceipts: true, EmailDocumentUpdates: true, EmailMarketing: true,
		SMSAppointmentReminders: true, SMSAppointmentConfirmations: true, SMSInvoiceReminders: true,
		SMSPaymentReceipts: true, SMSDocumentUpdates: true, SMSMarketing: true,
	}
}

func TestSelectChannels_EmailMasterOff(t *testing.T) {
	p := allOn()
	p.EmailNotifications = false
	for _, typ := range allTypes {
		if SelectChannels(typ, p, Contact{Email: "a@b.co"}).SendEmail {
			t.Errorf("%s: email selected with master toggle off", typ)
		}
	}
}

func TestSelectChannels_SMSMasterOff(t *testing.T) {
	p := allOn()
	p.SMSNotifications = false
	for _, typ := range allTypes {
		if SelectChannels(typ, p, Contact{Phone: "+15550001111"}).SendSMS {
			t.Errorf("%s: sms selected with master toggle off", typ)
		}
	}
}

func TestSelectChannels_NoPreferences(t *testing.T) {
	got := SelectChannels("appointment_reminder", nil, Contact{Email: "jane@example.com"})
	if got != (ChannelDecision{SendEmail: true, SendSMS: false}) {
		t.Errorf("got %+v, want email only", got)
	}

	got = SelectChannels("appointment_reminder", nil, Contact{Phone: "+15550001111"})
	if got.SendEmail || got.SendSMS {
		t.Errorf("got %+v, want nothing without an email address", got)
	}
}

func TestSelectChannels_SubTogglesOffFallBackToMaster(t *testing.T) {
	p := &ContactPreferences{EmailNotifications: true, SMSNotifications: true}
	for _, typ := range []string{"appointment_reminder", "invoice_reminder", "payment_received", "marketing"} {
		got := SelectChannels(typ, p, Contact{})
		if !got.SendEmail || !got.SendSMS {
			t.Errorf("%s = %+v, want both channels from the master toggles", typ, got)
		}
	}
}

func TestSelectChannels_SubToggleOn(t *testing.T) {
	p := &ContactPreferences{
		EmailNotifications:        true,
		EmailAppointmentReminders: true,
		SMSAppointmentReminders:   true,
	}
	got := SelectChannels("appointment_reminder", p, Contact{})
	if !got.SendEmail {
		t.Error("email reminders should be enabled")
	}
	if got.SendSMS {
		t.Error("sms sub-toggle cannot override the sms master toggle")
	}
}

func TestSelectChannels_UnmappedTypeFollowsMaster(t *testing.T) {
	p := &ContactPreferences{EmailNotifications: true}
	for _, typ := range []string{"portal_verification", "payment_request", "refund_processed"} {
		got := SelectChannels(typ, p, Contact{})
		if !got.SendEmail {
			t.Errorf("%s: should follow the email master toggle", typ)
		}
		if got.SendSMS {
			t.Errorf("%s: should follow the sms master toggle", typ)
		}
	}
}

func TestSelectChannels_Defaults(t *testing.T) {
	p := DefaultPreferences(uuid.New())
	for _, typ := range []string{"marketing", "invoice_created", "appointment_reminder"} {
		if got := SelectChannels(typ, p, Contact{}); !got.SendEmail || got.SendSMS {
			t.Errorf("%s with defaults = %+v, want email only", typ, got)
		}
	}
}

func TestExplicitChannels(t *testing.T) {
	tests := []struct {
		chs  []Channel
		want ChannelDecision
	}{
		{nil, ChannelDecision{}},
		{[]Channel{ChannelEmail}, ChannelDecision{SendEmail: true}},
		{[]Channel{ChannelSMS}, ChannelDecision{SendSMS: true}},
		{[]Channel{ChannelEmail, ChannelSMS}, ChannelDecision{SendEmail: true, SendSMS: true}},
	}
	for _, tt := range tests {
		if got := explicitChannels(tt.chs); got != tt.want {
			t.Errorf("explicitChannels(%v) = %+v, want %+v", tt.chs, got, tt.want)
		}
	}
}

func TestChannelDecision_Restrict(t *testing.T) {
	both := ChannelDecision{SendEmail: true, SendSMS: true}
	tests := []struct {
		allowed []Channel
		want    ChannelDecision
	}{
		{nil, both},
		{[]Channel{ChannelEmail}, ChannelDecision{SendEmail: true}},
		{[]Channel{ChannelSMS}, ChannelDecision{SendSMS: true}},
		{[]Channel{ChannelEmail, ChannelSMS}, both},
	}
	for _, tt := range tests {
		if got := both.restrict(tt.allowed); got != tt.want {
			t.Errorf("restrict(%v) = %+v, want %+v", tt.allowed, got, tt.want)
		}
	}
	if got := (ChannelDecision{SendEmail: true}).restrict([]Channel{ChannelSMS}); got.SendSMS {
		t.Error("restrict must never enable a channel")
	}
}
