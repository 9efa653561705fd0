package controllers

import (
	"net/http"
	"strings"

	"github.com/rentfolio/rentfolio-backend/api/responses"
	"github.com/rentfolio/rentfolio-backend/api/validators"
	inquirysvc "github.com/rentfolio/rentfolio-backend/internal/inquiries"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
)

// StartInquiry opens an inquiry thread against an active property.
func StartInquiry(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inquirysvc.StartInquiryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inquiry, err := svc.Start(r.Context(), tenantID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inquiry)
	}
}

// ListMyInquiries returns the tenant's inquiries.
func ListMyInquiries(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMine(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// ListManagerInquiries returns inquiries across the manager's properties
// with an optional status filter.
func ListManagerInquiries(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		managerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := strings.TrimSpace(r.URL.Query().Get("status"))

		rows, err := svc.ListForManager(r.Context(), managerID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// GetInquiryThread returns one inquiry and its messages for a participant.
func GetInquiryThread(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiryID, err := pathUUID(r, "inquiryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inquiry, messages, err := svc.GetThread(r.Context(), callerID, inquiryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"inquiry":  inquiry,
			"messages": messages,
		})
	}
}

// AppendInquiryMessage adds a message to an active thread.
func AppendInquiryMessage(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiryID, err := pathUUID(r, "inquiryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inquirysvc.AppendMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.AppendMessage(r.Context(), callerID, inquiryID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// MarkInquiryRead moves a pending inquiry to read.
func MarkInquiryRead(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		managerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiryID, err := pathUUID(r, "inquiryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inquiry, err := svc.MarkRead(r.Context(), managerID, inquiryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inquiry)
	}
}

// RespondToInquiry posts the manager's reply and marks the inquiry responded.
func RespondToInquiry(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		managerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiryID, err := pathUUID(r, "inquiryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inquirysvc.AppendMessageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inquiry, err := svc.Respond(r.Context(), managerID, inquiryID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inquiry)
	}
}

// UpdateInquiryStatus closes an inquiry or flags it as spam.
func UpdateInquiryStatus(svc inquirysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		managerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inquiryID, err := pathUUID(r, "inquiryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inquirysvc.UpdateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inquiry, err := svc.UpdateStatus(r.Context(), managerID, inquiryID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inquiry)
	}
}
