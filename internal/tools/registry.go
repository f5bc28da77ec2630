package tools

import (
	openai "github.com/sashabaranov/go-openai"
)

// Operation names in the static registry.
const (
	FnGetCurrentDateAndTime    = "getCurrentDateAndTime"
	FnGetDoctors               = "getDoctors"
	FnGetDoctorAvailability    = "getDoctorAvailability"
	FnBookAppointment          = "bookAppointment"
	FnCheckAppointment         = "checkAppointment"
	FnGetClinicInfo            = "getClinicInfo"
	FnGetNextAvailableTime     = "getNextAvailableTime"
	FnGetDoctorDetails         = "getDoctorDetails"
	FnGetAllSpecialistAtClinic = "getAllSpecialistAtClinic"
	FnEndCall                  = "endCall"
)

type definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

func definitions() []definition {
	return []definition{
		{
			Name:        FnGetCurrentDateAndTime,
			Description: "Get current date and time in YYYY-MM-DD and HH:mm:ss format",
		},
		{
			Name:        FnGetDoctors,
			Description: "Get list of available doctors and their specialties",
			Parameters: objectSchema(map[string]any{
				"specialty": stringParam("Filter doctors by specialty"),
			}),
		},
		{
			Name: FnGetDoctorAvailability,
			Description: "Get the FULL schedule of a doctor for a given date. " +
				"Use this ONLY to see all booked slots for a day, not when you want the next available time.",
			Parameters: objectSchema(map[string]any{
				"doctorId": numberParam("Doctor ID"),
				"date":     stringParam("Date in YYYY-MM-DD format"),
			}, "doctorId", "date"),
		},
		{
			Name:        FnBookAppointment,
			Description: "Book an appointment with a doctor",
			Parameters: objectSchema(map[string]any{
				"patientName":  stringParam("Patient's full name"),
				"patientPhone": stringParam("Patient's phone number"),
				"doctorId":     numberParam("Doctor ID"),
				"date":         stringParam("Date in YYYY-MM-DD format"),
				"startTime":    stringParam("Start time in HH:mm format"),
				"reason":       stringParam("Reason for the appointment"),
			}, "patientName", "patientPhone", "doctorId", "date", "startTime", "reason"),
		},
		{
			Name:        FnCheckAppointment,
			Description: "Check status of a booked appointment",
			Parameters: objectSchema(map[string]any{
				"patientName":   stringParam(""),
				"appointmentId": numberParam(""),
			}),
		},
		{
			Name:        FnGetClinicInfo,
			Description: "Get general clinic information such as hours, services, or address",
			Parameters: objectSchema(map[string]any{
				"infoType": stringParam("Type of info (e.g., hours, services)"),
			}),
		},
		{
			Name: FnGetNextAvailableTime,
			Description: "Get ONLY the NEXT available time slot for a doctor. " +
				"Do NOT call getDoctorAvailability together with this.",
			Parameters: objectSchema(map[string]any{
				"doctorId":      numberParam("Doctor ID"),
				"date":          stringParam("Date in YYYY-MM-DD format"),
				"requestedTime": stringParam("HH:mm format"),
			}, "doctorId", "date", "requestedTime"),
		},
		{
			Name:        FnGetDoctorDetails,
			Description: "Get details of a specific doctor by ID",
			Parameters: objectSchema(map[string]any{
				"doctorId": stringParam("Doctor ID"),
			}, "doctorId"),
		},
		{
			Name:        FnEndCall,
			Description: "End the call. Use this when the user is done with their queries.",
		},
		{
			Name:        FnGetAllSpecialistAtClinic,
			Description: "Get all the specialties available at the clinic.",
		},
	}
}

// Definitions returns the registry as chat-completions tool schemas.
func Definitions() []openai.Tool {
	defs := definitions()
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		fn := &openai.FunctionDefinition{
			Name:        d.Name,
			Description: d.Description,
		}
		if d.Parameters != nil {
			fn.Parameters = d.Parameters
		}
		out = append(out, openai.Tool{Type: openai.ToolTypeFunction, Function: fn})
	}
	return out
}

// RealtimeDefinitions returns the registry in the flattened shape the
// realtime control channel expects inside session.update.
func RealtimeDefinitions() []map[string]any {
	defs := definitions()
	out := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		entry := map[string]any{
			"type":        "function",
			"name":        d.Name,
			"description": d.Description,
		}
		if d.Parameters != nil {
			entry["parameters"] = d.Parameters
		}
		out = append(out, entry)
	}
	return out
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringParam(description string) map[string]any {
	p := map[string]any{"type": "string"}
	if description != "" {
		p["description"] = description
	}
	return p
}

func numberParam(description string) map[string]any {
	p := map[string]any{"type": "number"}
	if description != "" {
		p["description"] = description
	}
	return p
}
