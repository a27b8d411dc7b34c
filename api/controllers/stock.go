package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/elibrary-backend/api/responses"
	"github.com/angelmondragon/elibrary-backend/api/validators"
	"github.com/angelmondragon/elibrary-backend/internal/inventory"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

// StockAvailable lists books with copies on the shelf.
func StockAvailable(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}
		list, err := svc.Available(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func StockHistory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

type stockAction func(ctx context.Context, userID, bookID uuid.UUID) (*inventory.TransactionDTO, error)

// StockBorrow, StockReturn and StockBuy move physical copies and record a stock transaction.
func StockBorrow(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return stockHandler(nil, http.StatusCreated, logg)
	}
	return stockHandler(svc.Borrow, http.StatusCreated, logg)
}

func StockReturn(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return stockHandler(nil, http.StatusOK, logg)
	}
	return stockHandler(svc.Return, http.StatusOK, logg)
}

func StockBuy(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return stockHandler(nil, http.StatusCreated, logg)
	}
	return stockHandler(svc.Buy, http.StatusCreated, logg)
}

func stockHandler(action stockAction, status int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if action == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory service"))
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
		tx, err := action(r.Context(), userID, bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, tx)
	}
}
