package notify

// ChannelDecision is the per-channel outcome of preference resolution.
type ChannelDecision struct {
	SendEmail bool `json:"send_email"`
	SendSMS   bool `json:"send_sms"`
}

type category int

const (
	categoryNone category = iota
	categoryAppointmentReminders
	categoryAppointmentConfirmations
	categoryInvoiceReminders
	categoryPaymentReceipts
	categoryDocumentUpdates
)

var categoryByType = map[string]category{
	"appointment_reminder":     categoryAppointmentReminders,
	"appointment_confirmation": categoryAppointmentConfirmations,
	"invoice_reminder":         categoryInvoiceReminders,
	"payment_receipt":          categoryPaymentReceipts,
	"document_update":          categoryDocumentUpdates,
}

// SelectChannels decides which channels a notification of the given type
// may use. Each channel is evaluated on its own:
//
//  1. master toggle off: disabled
//  2. the type maps to a category whose sub-toggle is on: enabled
//  3. otherwise the master toggle decides, and it is on
//
// A category sub-toggle that is off therefore does not suppress a channel
// whose master toggle is on. SMS has no document_update category.
//
// With no preferences on file, email is chosen when the contact has an
// address and SMS is never chosen.
func SelectChannels(notificationType string, prefs *ContactPreferences, contact Contact) ChannelDecision {
	if prefs == nil {
		return ChannelDecision{SendEmail: contact.Email != ""}
	}
	cat := categoryByType[notificationType]
	return ChannelDecision{
		SendEmail: channelEnabled(prefs.EmailNotifications, prefs.emailCategory(cat)),
		SendSMS:   channelEnabled(prefs.SMSNotifications, prefs.smsCategory(cat)),
	}
}

func channelEnabled(master, subToggle bool) bool {
	if !master {
		return false
	}
	if subToggle {
		return true
	}
	return master
}

func (p *ContactPreferences) emailCategory(c category) bool {
	switch c {
	case categoryAppointmentReminders:
		return p.EmailAppointmentReminders
	case categoryAppointmentConfirmations:
		return p.EmailAppointmentConfirmations
	case categoryInvoiceReminders:
		return p.EmailInvoiceReminders
	case categoryPaymentReceipts:
		return p.EmailPaymentReceipts
	case categoryDocumentUpdates:
		return p.EmailDocumentUpdates
	}
	return false
}

func (p *ContactPreferences) smsCategory(c category) bool {
	switch c {
	case categoryAppointmentReminders:
		return p.SMSAppointmentReminders
	case categoryAppointmentConfirmations:
		return p.SMSAppointmentConfirmations
	case categoryInvoiceReminders:
		return p.SMSInvoiceReminders
	case categoryPaymentReceipts:
		return p.SMSPaymentReceipts
	}
	return false
}

// explicitChannels enables exactly the listed channels.
func explicitChannels(chs []Channel) ChannelDecision {
	var d ChannelDecision
	for _, ch := range chs {
		switch ch {
		case ChannelEmail:
			d.SendEmail = true
		case ChannelSMS:
			d.SendSMS = true
		}
	}
	return d
}

// restrict drops channels not named in allowed. An empty allowed list keeps
// the decision unchanged.
func (d ChannelDecision) restrict(allowed []Channel) ChannelDecision {
	if len(allowed) == 0 {
		return d
	}
	var email, sms bool
	for _, ch := range allowed {
		switch ch {
		case ChannelEmail:
			email = true
		case ChannelSMS:
			sms = true
		}
	}
	return ChannelDecision{SendEmail: d.SendEmail && email, SendSMS: d.SendSMS && sms}
}
