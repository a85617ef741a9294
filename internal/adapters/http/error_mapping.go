package httpadapter

import (
	"net/http"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrValidation),
		domain.IsKind(err, domain.ErrRange):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicate):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
