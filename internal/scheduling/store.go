package scheduling

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// AppointmentStore is the flat ordered appointment list. Reads return the
// full list; every mutation rewrites the whole list. There is no transactional
// guarantee across processes; a known limitation of the flat-file design,
// called out rather than hidden.
//
// ListForDoctorDate must return appointments ordered by start time. The
// scheduler's forward scan jumps off the first conflict it meets, so the
// suggestion sequence depends on that ordering.
type AppointmentStore interface {
	List() ([]Appointment, error)
	Append(appt Appointment) error
	ListForDoctorDate(doctorID int, date string) ([]Appointment, error)
	Replace(appts []Appointment) error
}

// FileStore keeps appointments in one JSON file. Writers within this process
// are serialized by a mutex; concurrent writers in other processes are not.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// List reads the full appointment list. A missing file is an empty store.
func (s *FileStore) List() ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append adds one appointment and rewrites the file.
func (s *FileStore) Append(appt Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts, err := s.load()
	if err != nil {
		return err
	}
	appts = append(appts, appt)
	return s.save(appts)
}

// ListForDoctorDate returns that doctor's appointments for the date, sorted
// by start time.
func (s *FileStore) ListForDoctorDate(doctorID int, date string) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appts, err := s.load()
	if err != nil {
		return nil, err
	}
	return filterDoctorDate(appts, doctorID, date), nil
}

// Replace overwrites the whole store. Used by the raw storage endpoint, which
// the dashboard UI drives directly.
func (s *FileStore) Replace(appts []Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(appts)
}

func (s *FileStore) load() ([]Appointment, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Appointment{}, nil
		}
		return nil, fmt.Errorf("scheduling: read appointments file: %w", err)
	}
	var appts []Appointment
	if err := json.Unmarshal(data, &appts); err != nil {
		return nil, fmt.Errorf("scheduling: decode appointments file: %w", err)
	}
	return appts, nil
}

func (s *FileStore) save(appts []Appointment) error {
	data, err := json.MarshalIndent(appts, "", "  ")
	if err != nil {
		return fmt.Errorf("scheduling: encode appointments: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("scheduling: create store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("scheduling: write appointments file: %w", err)
	}
	return nil
}

func filterDoctorDate(appts []Appointment, doctorID int, date string) []Appointment {
	out := make([]Appointment, 0)
	for _, a := range appts {
		if a.DoctorID == doctorID && a.Date == date {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		mi, _ := ToMinutes(out[i].StartTime)
		mj, _ := ToMinutes(out[j].StartTime)
		return mi < mj
	})
	return out
}
