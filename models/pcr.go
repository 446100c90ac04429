package models

// PatientCareRecord holds the clinical documentation filed for a call
type PatientCareRecord struct {
	ID                     int    `json:"id"`
	CallID                 int    `json:"callId"`
	PatientVitals          string `json:"patientVitals"`
	TreatmentsAdministered string `json:"treatmentsAdministered"`
	Medications            string `json:"medications"`
	TransferDestination    string `json:"transferDestination"`
	Notes                  string `json:"notes"`
	IsSynced               bool   `json:"isSynced"`
}

// PCRInput is the clinical part of a patient care record as filed by an EMT
type PCRInput struct {
	PatientVitals          string `json:"patientVitals"`
	TreatmentsAdministered string `json:"treatmentsAdministered"`
	Medications            string `json:"medications"`
	TransferDestination    string `json:"transferDestination"`
	Notes                  string `json:"notes"`
}
