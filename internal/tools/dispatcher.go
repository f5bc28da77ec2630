package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/meeraclinic/clinic-ai-platform/internal/clinic"
	"github.com/meeraclinic/clinic-ai-platform/internal/scheduling"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// Result is a JSON-serializable tool outcome. Failures are carried in the
// payload ("error" key), never raised, since results must travel back across the
// transport to the AI service.
type Result map[string]any

// Config wires a Dispatcher.
type Config struct {
	Scheduler  *scheduling.Scheduler
	Directory  *clinic.Directory
	ClinicInfo clinic.Info
	Lock       *DoctorLock
	Now        func() time.Time
	Logger     *logging.Logger
}

// Dispatcher is the single entry point mapping a named function-call request
// plus raw JSON arguments to a scheduler/lookup operation.
type Dispatcher struct {
	sched  *scheduling.Scheduler
	dir    *clinic.Directory
	info   clinic.Info
	lock   *DoctorLock
	now    func() time.Time
	logger *logging.Logger
}

// New creates a Dispatcher. A nil Lock leaves the session unconstrained.
func New(cfg Config) *Dispatcher {
	if cfg.Scheduler == nil {
		panic("tools: scheduler required")
	}
	if cfg.Directory == nil {
		panic("tools: directory required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.ClinicInfo.Name == "" {
		cfg.ClinicInfo = clinic.DefaultInfo()
	}
	return &Dispatcher{
		sched:  cfg.Scheduler,
		dir:    cfg.Directory,
		info:   cfg.ClinicInfo,
		lock:   cfg.Lock,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
}

// Invoke resolves one named operation. Unknown names and argument problems
// produce error payloads, never panics or Go errors.
func (d *Dispatcher) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) Result {
	var args arguments
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			d.logger.Warn("tool arguments did not parse", "name", name, "error", err)
			return Result{"error": "Invalid arguments"}
		}
	}

	if d.lock.Active() {
		if name == FnGetDoctors {
			return Result{
				"message": d.lock.RefusalMessage(),
				"doctors": []clinic.Doctor{},
			}
		}
		if doctorScoped[name] {
			args.DoctorID = flexInt(d.lock.DoctorID)
		}
	}

	d.logger.Debug("invoking tool", "name", name, "doctor_id", int(args.DoctorID))

	switch name {
	case FnGetCurrentDateAndTime:
		return d.currentDateAndTime()
	case FnGetDoctors:
		return Result{"doctors": d.dir.BySpecialty(args.Specialty)}
	case FnGetDoctorAvailability:
		return d.doctorAvailability(args)
	case FnBookAppointment:
		return d.bookAppointment(args)
	case FnCheckAppointment:
		return d.checkAppointment(args)
	case FnGetClinicInfo:
		return Result{"clinicInfo": d.info}
	case FnGetNextAvailableTime:
		return d.nextAvailableTime(args)
	case FnGetDoctorDetails:
		return d.doctorDetails(args)
	case FnGetAllSpecialistAtClinic:
		return Result{"specialties": d.dir.Specialties()}
	case FnEndCall:
		// Teardown itself is the transport's concern; acknowledging here
		// keeps text-mode conversations from stalling on the call.
		return Result{"success": true, "message": "Thank you for calling. Goodbye!"}
	default:
		return Result{"error": "Unknown function"}
	}
}

func (d *Dispatcher) currentDateAndTime() Result {
	now := d.now()
	return Result{
		"date": now.Format("2006-01-02"),
		"time": now.Format("15:04:05"),
	}
}

func (d *Dispatcher) doctorAvailability(args arguments) Result {
	doctor, appts, rej := d.sched.ListAvailability(int(args.DoctorID), args.Date)
	if rej != nil {
		return errResult(rej)
	}
	return Result{
		"doctor":       doctor.Name,
		"date":         args.Date,
		"appointments": appts,
	}
}

func (d *Dispatcher) bookAppointment(args arguments) Result {
	appt, rej := d.sched.Book(scheduling.BookingRequest{
		PatientName:  args.PatientName,
		PatientPhone: args.PatientPhone,
		DoctorID:     int(args.DoctorID),
		Date:         args.Date,
		StartTime:    args.StartTime,
		Duration:     int(args.Duration),
		Reason:       args.Reason,
	})
	if rej != nil {
		if rej.Code == scheduling.CodeSlotUnavailable {
			return Result{
				"success":    false,
				"message":    rej.Message,
				"suggestion": rej.Suggestion,
			}
		}
		return errResult(rej)
	}
	return Result{
		"success":     true,
		"appointment": appt,
		"message":     "Appointment booked successfully!",
	}
}

func (d *Dispatcher) checkAppointment(args arguments) Result {
	appts, rej := d.sched.FindAppointments(args.PatientName, int(args.AppointmentID))
	if rej != nil {
		return errResult(rej)
	}
	return Result{"appointments": appts}
}

func (d *Dispatcher) nextAvailableTime(args arguments) Result {
	slot, rej := d.sched.FindNextAvailable(int(args.DoctorID), args.Date, args.RequestedTime, int(args.Duration))
	if rej != nil {
		return errResult(rej)
	}
	return Result{
		"nextAvailable": slot.Start,
		"endTime":       slot.End,
		"duration":      slot.Duration,
		"date":          slot.Date,
		"doctor":        slot.Doctor,
	}
}

func (d *Dispatcher) doctorDetails(args arguments) Result {
	doctor, ok := d.dir.ByID(int(args.DoctorID))
	if !ok {
		return Result{"error": "Doctor not found"}
	}
	return Result{"doctor": doctor}
}

func errResult(rej *scheduling.Rejection) Result {
	return Result{"error": rej.Message}
}

// arguments is the union of every operation's parameters. The upstream
// schemas are inconsistent about doctorId (number in most operations, string
// in getDoctorDetails), so numeric fields accept both encodings.
type arguments struct {
	Specialty     string  `json:"specialty"`
	DoctorID      flexInt `json:"doctorId"`
	Date          string  `json:"date"`
	RequestedTime string  `json:"requestedTime"`
	StartTime     string  `json:"startTime"`
	Duration      flexInt `json:"duration"`
	PatientName   string  `json:"patientName"`
	PatientPhone  string  `json:"patientPhone"`
	Reason        string  `json:"reason"`
	AppointmentID flexInt `json:"appointmentId"`
	InfoType      string  `json:"infoType"`
}

// flexInt decodes from a JSON number or a quoted numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(int(n))
	return nil
}
