package tools

import "fmt"

// DoctorLock pins every tool operation in a session to one doctor. It is a
// session-scoped policy injected into the dispatcher at construction; the
// lock is enforced by overwriting doctor arguments before delegation, so a
// pinned session can never act on a different doctor even if the upstream
// model hallucinates one.
type DoctorLock struct {
	DoctorID int
}

// NewDoctorLock returns a lock for the given doctor, or nil for an
// unconstrained session.
func NewDoctorLock(doctorID int) *DoctorLock {
	if doctorID <= 0 {
		return nil
	}
	return &DoctorLock{DoctorID: doctorID}
}

// Active reports whether the lock constrains anything.
func (l *DoctorLock) Active() bool {
	return l != nil && l.DoctorID > 0
}

// RefusalMessage is the explanatory payload returned when a locked session
// asks to enumerate other doctors.
func (l *DoctorLock) RefusalMessage() string {
	return fmt.Sprintf("This session is locked to doctor ID %d. I cannot fetch other doctors.", l.DoctorID)
}

// PromptDirective extends system instructions for pinned sessions.
func (l *DoctorLock) PromptDirective() string {
	if !l.Active() {
		return ""
	}
	return fmt.Sprintf(
		"\n\nThis conversation is dedicated to doctor ID %d. Only discuss, check availability for, and book with this doctor.",
		l.DoctorID,
	)
}

// doctorScoped lists the operations whose doctorId argument the lock
// overwrites.
var doctorScoped = map[string]bool{
	FnGetDoctorDetails:      true,
	FnGetDoctorAvailability: true,
	FnBookAppointment:       true,
	FnGetNextAvailableTime:  true,
}
