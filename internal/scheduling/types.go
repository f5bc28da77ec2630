package scheduling

import "fmt"

// StatusConfirmed is the only appointment status the scheduler writes.
// Dashboard flows mutate the store directly and may use other values.
const StatusConfirmed = "confirmed"

// Appointment is one booked interval in the flat store.
type Appointment struct {
	ID           int    `json:"id"`
	PatientName  string `json:"patientName"`
	PatientPhone string `json:"patientPhone"`
	DoctorID     int    `json:"doctorId"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Status       string `json:"status"`
	Reason       string `json:"reason"`
}

// Slot is a candidate [start,end) window for one doctor on one date.
type Slot struct {
	Start    string `json:"nextAvailable"`
	End      string `json:"endTime"`
	Duration int    `json:"duration"`
	Date     string `json:"date"`
	Doctor   string `json:"doctor"`
}

// GapPolicy is the minimum spacing enforced between adjacent appointments.
// The two values differ on purpose: probing for the next free slot uses the
// small gap, committing a booking re-checks with the large one. Do not unify
// them without confirming the policy.
type GapPolicy struct {
	SuggestionGap int
	BookingGap    int
}

// DefaultGapPolicy mirrors the production constants: 5 minutes while
// scanning, 30 minutes at booking time.
func DefaultGapPolicy() GapPolicy {
	return GapPolicy{SuggestionGap: 5, BookingGap: 30}
}

// BookingRequest is the input to Book.
type BookingRequest struct {
	PatientName  string `json:"patientName"`
	PatientPhone string `json:"patientPhone"`
	DoctorID     int    `json:"doctorId"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	Duration     int    `json:"duration"`
	Reason       string `json:"reason"`
}

// RejectionCode identifies why a scheduling operation could not proceed.
type RejectionCode string

const (
	CodeDoctorNotFound      RejectionCode = "doctor_not_found"
	CodeOutsideWorkingHours RejectionCode = "outside_working_hours"
	CodeSlotUnavailable     RejectionCode = "slot_unavailable"
	CodeConflictDetected    RejectionCode = "conflict_detected"
	CodeNoSlotsAvailable    RejectionCode = "no_slots_available"
	CodeInvalidRequest      RejectionCode = "invalid_request"
	CodeNotFound            RejectionCode = "not_found"
	CodeStoreFailure        RejectionCode = "store_failure"
)

// Rejection is a scheduling failure carried as data so it can travel back to
// the conversational model as a tool result. It is never panicked or treated
// as fatal.
type Rejection struct {
	Code       RejectionCode
	Message    string
	Suggestion *Slot
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("scheduling: %s: %s", r.Code, r.Message)
}

func reject(code RejectionCode, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}
