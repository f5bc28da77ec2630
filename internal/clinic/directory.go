package clinic

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// WorkingHours is a doctor's daily availability window, "HH:MM" clock times.
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Doctor is immutable reference data loaded at startup.
type Doctor struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Specialty    string       `json:"specialty"`
	WorkingHours WorkingHours `json:"workingHours"`
}

// Directory holds the static doctor list. It is never mutated after load.
type Directory struct {
	doctors []Doctor
}

// NewDirectory builds a directory from an explicit doctor list.
func NewDirectory(doctors []Doctor) *Directory {
	return &Directory{doctors: doctors}
}

// LoadDirectory reads doctors from a JSON file. An empty path returns the
// built-in clinic roster.
func LoadDirectory(path string) (*Directory, error) {
	if path == "" {
		return NewDirectory(defaultDoctors()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("clinic: read doctors file: %w", err)
	}
	var doctors []Doctor
	if err := json.Unmarshal(data, &doctors); err != nil {
		return nil, fmt.Errorf("clinic: decode doctors file: %w", err)
	}
	return NewDirectory(doctors), nil
}

// All returns the full roster in load order.
func (d *Directory) All() []Doctor {
	out := make([]Doctor, len(d.doctors))
	copy(out, d.doctors)
	return out
}

// ByID returns the doctor with the given ID, or false.
func (d *Directory) ByID(id int) (Doctor, bool) {
	for _, doc := range d.doctors {
		if doc.ID == id {
			return doc, true
		}
	}
	return Doctor{}, false
}

// BySpecialty returns doctors whose specialty contains the given substring,
// case-insensitively. An empty filter returns everyone.
func (d *Directory) BySpecialty(specialty string) []Doctor {
	if strings.TrimSpace(specialty) == "" {
		return d.All()
	}
	needle := strings.ToLower(specialty)
	var out []Doctor
	for _, doc := range d.doctors {
		if strings.Contains(strings.ToLower(doc.Specialty), needle) {
			out = append(out, doc)
		}
	}
	return out
}

// Specialties returns the distinct specialties offered, sorted.
func (d *Directory) Specialties() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, doc := range d.doctors {
		if _, ok := seen[doc.Specialty]; ok {
			continue
		}
		seen[doc.Specialty] = struct{}{}
		out = append(out, doc.Specialty)
	}
	sort.Strings(out)
	return out
}

func defaultDoctors() []Doctor {
	hours := WorkingHours{Start: "09:00", End: "17:00"}
	return []Doctor{
		{ID: 1, Name: "Dr. Sarah Johnson", Specialty: "Cardiologist", WorkingHours: hours},
		{ID: 2, Name: "Dr. Michael Chen", Specialty: "Neurologist", WorkingHours: hours},
		{ID: 3, Name: "Dr. Emily Davis", Specialty: "Pediatrician", WorkingHours: hours},
		{ID: 4, Name: "Dr. Ravish Mehta", Specialty: "General Physician", WorkingHours: hours},
		{ID: 5, Name: "Dr. Priya Sharma", Specialty: "Dermatologist", WorkingHours: hours},
		{ID: 6, Name: "Dr. Anil Kapoor", Specialty: "Orthopedic Surgeon", WorkingHours: hours},
		{ID: 7, Name: "Dr. Sophia Martinez", Specialty: "Gynecologist", WorkingHours: hours},
		{ID: 8, Name: "Dr. Rajiv Menon", Specialty: "Endocrinologist", WorkingHours: hours},
		{ID: 9, Name: "Dr. Hannah Lee", Specialty: "Ophthalmologist", WorkingHours: hours},
		{ID: 10, Name: "Dr. James Wilson", Specialty: "Oncologist", WorkingHours: hours},
		{ID: 11, Name: "Dr. Kavita Desai", Specialty: "Dentist", WorkingHours: hours},
		{ID: 12, Name: "Dr. Omar Al-Sayed", Specialty: "Pulmonologist", WorkingHours: hours},
		{ID: 13, Name: "Dr. Maria Gonzales", Specialty: "Psychiatrist", WorkingHours: hours},
		{ID: 14, Name: "Dr. Vikram Patel", Specialty: "Rheumatologist", WorkingHours: hours},
		{ID: 15, Name: "Dr. Laura Thompson", Specialty: "Gastroenterologist", WorkingHours: hours},
	}
}
