package clinic

// Hours describes when the clinic is open.
type Hours struct {
	Daily     string `json:"daily"`
	Emergency string `json:"emergency"`
}

// Info is the static clinic metadata returned by the getClinicInfo tool.
type Info struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Hours     Hours    `json:"hours"`
	Services  []string `json:"services"`
	Emergency string   `json:"emergency"`
}

// DefaultInfo returns the clinic metadata block.
func DefaultInfo() Info {
	return Info{
		Name:    "Meera Clinic",
		Address: "123 Health Street, Medical District, City 12345",
		Phone:   "+1 (555) 123-4567",
		Email:   "info@meeraclinic.com",
		Hours: Hours{
			Daily:     "24/7",
			Emergency: "24/7 Emergency Services",
		},
		Services: []string{
			"General Consultation",
			"Specialist Care",
			"Emergency Services",
			"Health Checkups",
			"Diagnostic Tests",
		},
		Emergency: "For emergencies, call 911 or visit the nearest emergency room",
	}
}
