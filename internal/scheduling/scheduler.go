package scheduling

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/meeraclinic/clinic-ai-platform/internal/clinic"
	"github.com/meeraclinic/clinic-ai-platform/internal/observability/metrics"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// DefaultSlotDuration is the appointment length in minutes when the caller
// does not specify one.
const DefaultSlotDuration = 20

// DefaultSameDayLead is how far ahead of "now" a same-day suggestion must be.
const DefaultSameDayLead = 10

// Config wires a Scheduler.
type Config struct {
	Directory    *clinic.Directory
	Store        AppointmentStore
	Gaps         GapPolicy
	SlotDuration int
	SameDayLead  int
	Now          func() time.Time
	Logger       *logging.Logger
	Metrics      *metrics.SchedulingMetrics
}

// Scheduler computes doctor availability and validates/commits bookings over
// the flat appointment store. All methods report failures as *Rejection data,
// never as panics, so results can be serialized back to the AI service.
type Scheduler struct {
	dir          *clinic.Directory
	store        AppointmentStore
	gaps         GapPolicy
	slotDuration int
	sameDayLead  int
	now          func() time.Time
	logger       *logging.Logger
	metrics      *metrics.SchedulingMetrics

	// bookMu serializes Book so the commit-time conflict scan and the append
	// act on the same store snapshot. The store mutex alone only covers each
	// individual read or write.
	bookMu sync.Mutex
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Directory == nil {
		panic("scheduling: directory required")
	}
	if cfg.Store == nil {
		panic("scheduling: store required")
	}
	if cfg.Gaps == (GapPolicy{}) {
		cfg.Gaps = DefaultGapPolicy()
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = DefaultSlotDuration
	}
	if cfg.SameDayLead <= 0 {
		cfg.SameDayLead = DefaultSameDayLead
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Scheduler{
		dir:          cfg.Directory,
		store:        cfg.Store,
		gaps:         cfg.Gaps,
		slotDuration: cfg.SlotDuration,
		sameDayLead:  cfg.SameDayLead,
		now:          cfg.Now,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
}

// FindNextAvailable scans forward from requestedTime for the first window of
// the given duration that neither overlaps nor sits within the suggestion gap
// of an existing appointment. A requested time before opening rounds up to
// opening; a same-day request additionally rounds up to now plus the lead
// buffer. There is no rounding down past closing; the scan fails instead.
func (s *Scheduler) FindNextAvailable(doctorID int, date, requestedTime string, duration int) (*Slot, *Rejection) {
	if duration <= 0 {
		duration = s.slotDuration
	}

	doctor, ok := s.dir.ByID(doctorID)
	if !ok {
		return nil, reject(CodeDoctorNotFound, "Doctor not found")
	}

	current, err := ToMinutes(requestedTime)
	if err != nil {
		return nil, reject(CodeInvalidRequest, fmt.Sprintf("Invalid time %q", requestedTime))
	}
	workStart, workEnd, rej := s.workingWindow(doctor)
	if rej != nil {
		return nil, rej
	}

	if current < workStart {
		current = workStart
	}
	now := s.now()
	if date == DateOf(now) {
		if buffered := MinutesOf(now) + s.sameDayLead; current < buffered {
			current = buffered
		}
	}

	appts, serr := s.store.ListForDoctorDate(doctorID, date)
	if serr != nil {
		s.logger.Error("failed to read appointments", "error", serr, "doctor_id", doctorID)
		return nil, reject(CodeStoreFailure, "Could not read the appointment schedule")
	}

	gap := s.gaps.SuggestionGap
	for current+duration <= workEnd {
		conflict := findConflict(appts, current, current+duration, gap)
		if conflict == nil {
			s.metrics.ObserveProbe("hit")
			return &Slot{
				Start:    ToClock(current),
				End:      ToClock(current + duration),
				Duration: duration,
				Date:     date,
				Doctor:   doctor.Name,
			}, nil
		}
		conflictEnd, _ := ToMinutes(conflict.EndTime)
		current = conflictEnd + gap
	}

	s.metrics.ObserveProbe("exhausted")
	return nil, reject(CodeNoSlotsAvailable, "No slots available today")
}

// Book validates and commits one appointment. The requested start is probed
// through FindNextAvailable; anything other than an exact match is rejected
// with the suggestion attached. The scheduler never silently moves a booking
// to a time the caller did not confirm. An exact match is then re-checked
// against the stricter booking gap before the store is rewritten.
func (s *Scheduler) Book(req BookingRequest) (*Appointment, *Rejection) {
	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	if req.Duration <= 0 {
		req.Duration = s.slotDuration
	}

	doctor, ok := s.dir.ByID(req.DoctorID)
	if !ok {
		s.metrics.ObserveBooking("doctor_not_found")
		return nil, reject(CodeDoctorNotFound, "Doctor not found")
	}

	reqStart, err := ToMinutes(req.StartTime)
	if err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, reject(CodeInvalidRequest, fmt.Sprintf("Invalid time %q", req.StartTime))
	}
	workStart, workEnd, rej := s.workingWindow(doctor)
	if rej != nil {
		return nil, rej
	}
	if reqStart < workStart || reqStart+req.Duration > workEnd {
		s.metrics.ObserveBooking("outside_hours")
		return nil, reject(CodeOutsideWorkingHours, fmt.Sprintf(
			"Doctor only works between %s and %s",
			doctor.WorkingHours.Start, doctor.WorkingHours.End,
		))
	}

	suggestion, srej := s.FindNextAvailable(req.DoctorID, req.Date, req.StartTime, req.Duration)
	if srej != nil {
		if srej.Code == CodeNoSlotsAvailable {
			s.metrics.ObserveBooking("no_slots")
			return nil, reject(CodeNoSlotsAvailable, "No slots available today")
		}
		return nil, srej
	}
	suggested, _ := ToMinutes(suggestion.Start)
	if suggested != reqStart {
		s.metrics.ObserveBooking("slot_unavailable")
		return nil, &Rejection{
			Code:       CodeSlotUnavailable,
			Message:    "The requested time is not available.",
			Suggestion: suggestion,
		}
	}

	// Independent scan with the stricter booking gap. The probe above used
	// the 5-minute gap; committing demands 30.
	all, serr := s.store.List()
	if serr != nil {
		s.logger.Error("failed to read appointments", "error", serr, "doctor_id", req.DoctorID)
		s.metrics.ObserveBooking("store_failure")
		return nil, reject(CodeStoreFailure, "Could not read the appointment schedule")
	}
	sameDay := filterDoctorDate(all, req.DoctorID, req.Date)
	if findConflict(sameDay, reqStart, reqStart+req.Duration, s.gaps.BookingGap) != nil {
		s.metrics.ObserveBooking("conflict")
		return nil, reject(CodeConflictDetected, fmt.Sprintf(
			"Doctor not available at %s. Please pick another time.", req.StartTime,
		))
	}

	appt := Appointment{
		ID:           len(all) + 1,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		DoctorID:     req.DoctorID,
		Date:         req.Date,
		StartTime:    ToClock(reqStart),
		EndTime:      ToClock(reqStart + req.Duration),
		Status:       StatusConfirmed,
		Reason:       req.Reason,
	}
	if err := s.store.Append(appt); err != nil {
		s.logger.Error("failed to persist appointment", "error", err, "doctor_id", req.DoctorID)
		s.metrics.ObserveBooking("store_failure")
		return nil, reject(CodeStoreFailure, "Could not save the appointment")
	}

	s.metrics.ObserveBooking("confirmed")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"date", appt.Date,
		"start", appt.StartTime,
	)
	return &appt, nil
}

// ListAvailability returns the booked intervals for that doctor and date,
// ordered by start time. It does not compute free gaps; the caller (or the
// model) reasons over the busy list itself.
func (s *Scheduler) ListAvailability(doctorID int, date string) (clinic.Doctor, []Appointment, *Rejection) {
	doctor, ok := s.dir.ByID(doctorID)
	if !ok {
		return clinic.Doctor{}, nil, reject(CodeDoctorNotFound, "Doctor not found")
	}
	appts, err := s.store.ListForDoctorDate(doctorID, date)
	if err != nil {
		s.logger.Error("failed to read appointments", "error", err, "doctor_id", doctorID)
		return clinic.Doctor{}, nil, reject(CodeStoreFailure, "Could not read the appointment schedule")
	}
	return doctor, appts, nil
}

// FindAppointments filters the store by appointment ID (preferred) or by a
// case-insensitive patient-name substring.
func (s *Scheduler) FindAppointments(patientName string, appointmentID int) ([]Appointment, *Rejection) {
	all, err := s.store.List()
	if err != nil {
		return nil, reject(CodeStoreFailure, "Could not read the appointment schedule")
	}

	result := all
	if appointmentID > 0 {
		result = nil
		for _, a := range all {
			if a.ID == appointmentID {
				result = append(result, a)
			}
		}
	} else if strings.TrimSpace(patientName) != "" {
		needle := strings.ToLower(patientName)
		result = nil
		for _, a := range all {
			if strings.Contains(strings.ToLower(a.PatientName), needle) {
				result = append(result, a)
			}
		}
	}

	if len(result) == 0 {
		return nil, reject(CodeNotFound, "No appointments found")
	}
	return result, nil
}

func (s *Scheduler) workingWindow(doctor clinic.Doctor) (int, int, *Rejection) {
	workStart, err := ToMinutes(doctor.WorkingHours.Start)
	if err != nil {
		return 0, 0, reject(CodeInvalidRequest, "Doctor has invalid working hours")
	}
	workEnd, err := ToMinutes(doctor.WorkingHours.End)
	if err != nil {
		return 0, 0, reject(CodeInvalidRequest, "Doctor has invalid working hours")
	}
	return workStart, workEnd, nil
}

// findConflict reports the first appointment the candidate [start,end) window
// overlaps or sits within gap minutes of. Appointments with unparseable times
// are skipped.
func findConflict(appts []Appointment, start, end, gap int) *Appointment {
	for i := range appts {
		apptStart, err := ToMinutes(appts[i].StartTime)
		if err != nil {
			continue
		}
		apptEnd, err := ToMinutes(appts[i].EndTime)
		if err != nil {
			continue
		}

		overlap := !(end <= apptStart || start >= apptEnd)
		tooClose := abs(start-apptEnd) < gap || abs(apptStart-end) < gap
		if overlap || tooClose {
			return &appts[i]
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
