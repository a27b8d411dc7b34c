package notifications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/pkg/db/models"
	"github.com/angelmondragon/elibrary-backend/pkg/enums"
	"github.com/angelmondragon/elibrary-backend/pkg/outbox/payloads"
)

const (
	PaymentSuccessMessage = "Payment successful! Your books have been added to your library."

	linkBooks  = "/me/books"
	linkOrders = "/me/orders"
)

// Build maps a decoded ledger payload onto the notification the reader sees.
// ok is false for events that produce no notification.
func Build(eventID uuid.UUID, payload any) (n *models.Notification, ok bool) {
	switch p := payload.(type) {
	case *payloads.OrderPlacedEvent:
		// borrow orders are announced by their book_borrowed event
		if p.OrderType != enums.OrderTypePurchase {
			return nil, false
		}
		return newNotification(eventID, p.UserID, enums.NotificationTypeOrder,
			"Payment successful", PaymentSuccessMessage, linkOrders), true

	case *payloads.BookPurchasedEvent:
		if p.OrderID != nil {
			return nil, false
		}
		return newNotification(eventID, p.UserID, enums.NotificationTypeOrder,
			"Book purchased",
			fmt.Sprintf("%q is now in your library. You paid $%s.", p.Title, p.Price.StringFixed(2)),
			linkBooks), true

	case *payloads.BookBorrowedEvent:
		return newNotification(eventID, p.UserID, enums.NotificationTypeBorrow,
			"Book borrowed",
			fmt.Sprintf("Book borrowed. Please return it within %d days.", p.Days),
			linkBooks), true

	case *payloads.RefundIssuedEvent:
		return newNotification(eventID, p.UserID, enums.NotificationTypeRefund,
			"Refund issued",
			fmt.Sprintf("Refund of $%s processed for early return!", p.Amount.StringFixed(2)),
			linkBooks), true

	case *payloads.BorrowOverdueEvent:
		return newNotification(eventID, p.UserID, enums.NotificationTypeOverdue,
			"Book overdue",
			fmt.Sprintf("%q is %s overdue. Please return it.", p.Title, dayCount(p.DaysOverdue)),
			linkBooks), true
	}
	return nil, false
}

func newNotification(eventID, userID uuid.UUID, kind enums.NotificationType, title, message, link string) *models.Notification {
	return &models.Notification{
		UserID:  userID,
		EventID: &eventID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    &link,
	}
}

func dayCount(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
