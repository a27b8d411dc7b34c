package enums

import "fmt"

// NotificationType groups reader-facing notifications.
type NotificationType string

const (
	NotificationTypeOrder   NotificationType = "order"
	NotificationTypeBorrow  NotificationType = "borrow"
	NotificationTypeRefund  NotificationType = "refund"
	NotificationTypeOverdue NotificationType = "overdue"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrder,
	NotificationTypeBorrow,
	NotificationTypeRefund,
	NotificationTypeOverdue,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
