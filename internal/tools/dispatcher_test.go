package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meeraclinic/clinic-ai-platform/internal/clinic"
	"github.com/meeraclinic/clinic-ai-platform/internal/scheduling"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
}

func newTestDispatcher(t *testing.T, lock *DoctorLock) *Dispatcher {
	t.Helper()
	dir, err := clinic.LoadDirectory("")
	require.NoError(t, err)
	store := scheduling.NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	sched := scheduling.New(scheduling.Config{
		Directory: dir,
		Store:     store,
		Now:       fixedNow,
	})
	return New(Config{
		Scheduler: sched,
		Directory: dir,
		Lock:      lock,
		Now:       fixedNow,
	})
}

func TestInvokeCurrentDateAndTime(t *testing.T) {
	d := newTestDispatcher(t, nil)

	res := d.Invoke(context.Background(), FnGetCurrentDateAndTime, nil)

	assert.Equal(t, "2025-03-03", res["date"])
	assert.Equal(t, "08:00:00", res["time"])
}

func TestInvokeGetDoctorsFiltersBySpecialty(t *testing.T) {
	d := newTestDispatcher(t, nil)

	res := d.Invoke(context.Background(), FnGetDoctors, json.RawMessage(`{"specialty":"cardio"}`))

	doctors, ok := res["doctors"].([]clinic.Doctor)
	require.True(t, ok)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Sarah Johnson", doctors[0].Name)
}

func TestInvokeBookAppointment(t *testing.T) {
	d := newTestDispatcher(t, nil)

	res := d.Invoke(context.Background(), FnBookAppointment, json.RawMessage(`{
		"patientName": "Asha Rao",
		"patientPhone": "+1-555-0134",
		"doctorId": 2,
		"date": "2025-03-04",
		"startTime": "10:00",
		"reason": "headaches"
	}`))

	assert.Equal(t, true, res["success"])
	assert.Equal(t, "Appointment booked successfully!", res["message"])
	appt, ok := res["appointment"].(*scheduling.Appointment)
	require.True(t, ok)
	assert.Equal(t, 1, appt.ID)
	assert.Equal(t, "10:20", appt.EndTime)
}

func TestInvokeBookAppointmentSuggestsOnMiss(t *testing.T) {
	d := newTestDispatcher(t, nil)
	ctx := context.Background()

	first := d.Invoke(ctx, FnBookAppointment, json.RawMessage(`{
		"patientName": "Asha Rao", "patientPhone": "x",
		"doctorId": 2, "date": "2025-03-04", "startTime": "10:00", "reason": "r"
	}`))
	require.Equal(t, true, first["success"])

	second := d.Invoke(ctx, FnBookAppointment, json.RawMessage(`{
		"patientName": "Ben Ortiz", "patientPhone": "y",
		"doctorId": 2, "date": "2025-03-04", "startTime": "10:00", "reason": "r"
	}`))

	assert.Equal(t, false, second["success"])
	assert.Equal(t, "The requested time is not available.", second["message"])
	slot, ok := second["suggestion"].(*scheduling.Slot)
	require.True(t, ok)
	assert.Equal(t, "10:25", slot.Start)
}

func TestInvokeNextAvailableTimePayloadShape(t *testing.T) {
	d := newTestDispatcher(t, nil)

	res := d.Invoke(context.Background(), FnGetNextAvailableTime, json.RawMessage(`{
		"doctorId": 1, "date": "2025-03-04", "requestedTime": "08:00"
	}`))

	assert.Equal(t, "09:00", res["nextAvailable"])
	assert.Equal(t, "09:20", res["endTime"])
	assert.Equal(t, 20, res["duration"])
	assert.Equal(t, "2025-03-04", res["date"])
	assert.Equal(t, "Dr. Sarah Johnson", res["doctor"])
}

func TestInvokeCheckAppointment(t *testing.T) {
	d := newTestDispatcher(t, nil)
	ctx := context.Background()

	res := d.Invoke(ctx, FnCheckAppointment, json.RawMessage(`{"patientName":"nobody"}`))
	assert.Equal(t, "No appointments found", res["error"])

	booked := d.Invoke(ctx, FnBookAppointment, json.RawMessage(`{
		"patientName": "Asha Rao", "patientPhone": "x",
		"doctorId": 2, "date": "2025-03-04", "startTime": "11:00", "reason": "r"
	}`))
	require.Equal(t, true, booked["success"])

	res = d.Invoke(ctx, FnCheckAppointment, json.RawMessage(`{"appointmentId":1}`))
	appts, ok := res["appointments"].([]scheduling.Appointment)
	require.True(t, ok)
	require.Len(t, appts, 1)
	assert.Equal(t, "Asha Rao", appts[0].PatientName)
}

func TestInvokeDoctorDetailsAcceptsStringID(t *testing.T) {
	d := newTestDispatcher(t, nil)

	res := d.Invoke(context.Background(), FnGetDoctorDetails, json.RawMessage(`{"doctorId":"3"}`))

	doctor, ok := res["doctor"].(clinic.Doctor)
	require.True(t, ok)
	assert.Equal(t, "Dr. Emily Davis", doctor.Name)
}

func TestInvokeUnknownFunction(t *testing.T) {
	d := newTestDispatcher(t, nil)

	res := d.Invoke(context.Background(), "teleportPatient", nil)

	assert.Equal(t, "Unknown function", res["error"])
}

func TestInvokeSpecialties(t *testing.T) {
	d := newTestDispatcher(t, nil)

	res := d.Invoke(context.Background(), FnGetAllSpecialistAtClinic, nil)

	specialties, ok := res["specialties"].([]string)
	require.True(t, ok)
	assert.Contains(t, specialties, "Neurologist")
	assert.Len(t, specialties, 15)
}

func TestLockedSessionRefusesDoctorListing(t *testing.T) {
	d := newTestDispatcher(t, NewDoctorLock(3))

	res := d.Invoke(context.Background(), FnGetDoctors, json.RawMessage(`{}`))

	assert.Equal(t, "This session is locked to doctor ID 3. I cannot fetch other doctors.", res["message"])
	doctors, ok := res["doctors"].([]clinic.Doctor)
	require.True(t, ok)
	assert.Empty(t, doctors)
}

func TestLockedSessionOverwritesDoctorID(t *testing.T) {
	d := newTestDispatcher(t, NewDoctorLock(3))
	ctx := context.Background()

	res := d.Invoke(ctx, FnGetDoctorDetails, json.RawMessage(`{"doctorId":9}`))
	doctor, ok := res["doctor"].(clinic.Doctor)
	require.True(t, ok)
	assert.Equal(t, 3, doctor.ID)

	res = d.Invoke(ctx, FnBookAppointment, json.RawMessage(`{
		"patientName": "Asha Rao", "patientPhone": "x",
		"doctorId": 9, "date": "2025-03-04", "startTime": "09:00", "reason": "r"
	}`))
	require.Equal(t, true, res["success"])
	appt := res["appointment"].(*scheduling.Appointment)
	assert.Equal(t, 3, appt.DoctorID)
}

func TestLockDoesNotTouchUnscopedOperations(t *testing.T) {
	d := newTestDispatcher(t, NewDoctorLock(3))

	res := d.Invoke(context.Background(), FnGetAllSpecialistAtClinic, nil)

	_, hasErr := res["error"]
	assert.False(t, hasErr)
	assert.NotEmpty(t, res["specialties"])
}

func TestFlexIntDecoding(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`7`, 7},
		{`"7"`, 7},
		{`7.0`, 7},
		{`null`, 0},
		{`"not a number"`, 0},
	}
	for _, tc := range cases {
		var f flexInt
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &f))
		assert.Equal(t, tc.want, int(f), "raw %s", tc.raw)
	}
}
