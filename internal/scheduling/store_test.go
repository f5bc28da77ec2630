package scheduling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	appts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestFileStore_AppendRewritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	store := NewFileStore(path)

	first := Appointment{ID: 1, PatientName: "A", DoctorID: 1, Date: "2026-03-11", StartTime: "10:00", EndTime: "10:20", Status: StatusConfirmed}
	second := Appointment{ID: 2, PatientName: "B", DoctorID: 1, Date: "2026-03-11", StartTime: "11:00", EndTime: "11:20", Status: StatusConfirmed}
	require.NoError(t, store.Append(first))
	require.NoError(t, store.Append(second))

	appts, err := store.List()
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, first, appts[0])
	assert.Equal(t, second, appts[1])

	// Reopening the same file sees the same records.
	reopened := NewFileStore(path)
	appts, err = reopened.List()
	require.NoError(t, err)
	assert.Len(t, appts, 2)
}

func TestFileStore_Replace(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	require.NoError(t, store.Append(Appointment{ID: 1}))

	replacement := []Appointment{{ID: 7, PatientName: "New"}}
	require.NoError(t, store.Replace(replacement))

	appts, err := store.List()
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, 7, appts[0].ID)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appointments.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewFileStore(path)
	_, err := store.List()
	assert.Error(t, err)
}

func TestFileStore_ListForDoctorDateSorts(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	require.NoError(t, store.Append(Appointment{ID: 1, DoctorID: 1, Date: "2026-03-11", StartTime: "15:00", EndTime: "15:20"}))
	require.NoError(t, store.Append(Appointment{ID: 2, DoctorID: 1, Date: "2026-03-11", StartTime: "09:00", EndTime: "09:20"}))
	require.NoError(t, store.Append(Appointment{ID: 3, DoctorID: 1, Date: "2026-03-12", StartTime: "08:00", EndTime: "08:20"}))
	require.NoError(t, store.Append(Appointment{ID: 4, DoctorID: 2, Date: "2026-03-11", StartTime: "10:00", EndTime: "10:20"}))

	appts, err := store.ListForDoctorDate(1, "2026-03-11")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, 2, appts[0].ID)
	assert.Equal(t, 1, appts[1].ID)
}

func TestClockHelpers(t *testing.T) {
	tests := []struct {
		in      string
		minutes int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"10:25", 625, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"14:30:15", 870, false}, // seconds tolerated
		{"25:00", 0, true},
		{"nine", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ToMinutes(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.minutes, got, tt.in)
	}

	assert.Equal(t, "09:05", ToClock(545))
	assert.Equal(t, "10:25", ToClock(625))
}
