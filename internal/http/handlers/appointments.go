package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/meeraclinic/clinic-ai-platform/internal/scheduling"
	"github.com/meeraclinic/clinic-ai-platform/internal/tools"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// queryActions maps the ?action= query parameter to registry operations. The
// booking and call-control operations are deliberately absent: booking goes
// through POST, and call control has no meaning over plain HTTP.
var queryActions = map[string]string{
	"getDoctors":            tools.FnGetDoctors,
	"getDoctorAvailability": tools.FnGetDoctorAvailability,
	"getNextAvailableTime":  tools.FnGetNextAvailableTime,
	"checkAppointment":      tools.FnCheckAppointment,
	"getClinicInfo":         tools.FnGetClinicInfo,
	"getDoctorDetails":      tools.FnGetDoctorDetails,
}

// AppointmentsHandler exposes the tool registry over plain HTTP for the
// dashboard UI, plus raw access to the appointment file.
type AppointmentsHandler struct {
	dispatcher *tools.Dispatcher
	store      scheduling.AppointmentStore
	logger     *logging.Logger
}

// NewAppointmentsHandler creates a new appointments handler.
func NewAppointmentsHandler(dispatcher *tools.Dispatcher, store scheduling.AppointmentStore, logger *logging.Logger) *AppointmentsHandler {
	if dispatcher == nil {
		panic("handlers: dispatcher cannot be nil")
	}
	if store == nil {
		panic("handlers: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{dispatcher: dispatcher, store: store, logger: logger}
}

// Query handles GET /api/appointments?action=...
func (h *AppointmentsHandler) Query(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	name, ok := queryActions[action]
	if !ok {
		writeEnvelope(w, tools.Result{"error": "Unknown action"})
		return
	}

	args := map[string]string{}
	for _, key := range []string{"doctorId", "date", "specialty", "appointmentId", "patientName", "infoType", "requestedTime"} {
		if v := r.URL.Query().Get(key); v != "" {
			args[key] = v
		}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		h.logger.Error("failed to encode query arguments", "error", err)
		writeEnvelopeStatus(w, http.StatusInternalServerError, tools.Result{"error": "Internal server error"})
		return
	}

	writeEnvelope(w, h.dispatcher.Invoke(r.Context(), name, raw))
}

// Book handles POST /api/appointments.
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeEnvelopeStatus(w, http.StatusInternalServerError, tools.Result{"error": "Internal server error"})
		return
	}
	writeEnvelope(w, h.dispatcher.Invoke(r.Context(), tools.FnBookAppointment, body))
}

// LoadStorage handles GET /api/appointments/storage: the raw appointment list.
func (h *AppointmentsHandler) LoadStorage(w http.ResponseWriter, r *http.Request) {
	appts, err := h.store.List()
	if err != nil {
		h.logger.Error("failed to read appointment storage", "error", err)
		writeJSON(w, http.StatusOK, []scheduling.Appointment{})
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

// SaveStorage handles POST /api/appointments/storage: replace the whole list.
func (h *AppointmentsHandler) SaveStorage(w http.ResponseWriter, r *http.Request) {
	var appts []scheduling.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appts); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid appointment list"})
		return
	}
	if err := h.store.Replace(appts); err != nil {
		h.logger.Error("failed to write appointment storage", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not save appointments"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeEnvelope wraps a tool result in the dashboard's {data, error} shape:
// the result object always rides in a one-element data array, and the error
// key is null unless the result carried one.
func writeEnvelope(w http.ResponseWriter, result tools.Result) {
	writeEnvelopeStatus(w, http.StatusOK, result)
}

func writeEnvelopeStatus(w http.ResponseWriter, status int, result tools.Result) {
	var errVal any
	if msg, ok := result["error"]; ok {
		errVal = msg
	}
	writeJSON(w, status, map[string]any{
		"data":  []tools.Result{result},
		"error": errVal,
	})
}
