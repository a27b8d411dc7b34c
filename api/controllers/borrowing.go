package controllers

import (
	"net/http"

	"github.com/angelmondragon/elibrary-backend/api/middleware"
	"github.com/angelmondragon/elibrary-backend/api/responses"
	"github.com/angelmondragon/elibrary-backend/api/validators"
	"github.com/angelmondragon/elibrary-backend/internal/borrowing"
	"github.com/angelmondragon/elibrary-backend/internal/purchases"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

type borrowRequest struct {
	Days *int `json:"days,omitempty"`
}

// BorrowBook takes an optional {"days": n}; the service applies the default and bounds.
func BorrowBook(svc borrowing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("borrowing service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body borrowRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		borrow, err := svc.Borrow(r.Context(), userID, bookID, body.Days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, borrow)
	}
}

// ReturnBorrow closes a borrow. Admins may return on behalf of any reader.
func ReturnBorrow(svc borrowing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("borrowing service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		borrowID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Return(r.Context(), borrowing.Requester{
			UserID:  userID,
			IsAdmin: middleware.IsAdmin(r.Context()),
		}, borrowID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BuyBook(svc purchases.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("purchase service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchase, err := svc.Buy(r.Context(), userID, bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, purchase)
	}
}
