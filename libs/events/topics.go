package events

// Event types shared across services. Each doubles as its Kafka topic.
const (
	TopicAppointmentBooked    = "scheduling.appointment.booked.v1"
	TopicAppointmentCancelled = "scheduling.appointment.cancelled.v1"
	TopicPaymentSucceeded     = "billing.payment.succeeded.v1"
	TopicReminderDue          = "scheduler.reminder.due.v1"
	TopicReminderDLQ          = "scheduler.reminder.dlq.v1"
	TopicReferralCreated      = "network.referral.created.v1"
	TopicTherapistRegistered  = "auth.therapist.registered.v1"
	TopicNotificationSent     = "notification.sent.v1"
	TopicNotificationFailed   = "notification.failed.v1"
)
