package persistence

import (
	"database/sql"
	"time"
)

type (

	//Draft table, a recording session not yet finalized
	Draft struct {
		ID                    string
		UserID                string
		AudioKey              string
		AudioURL              string
		Title                 sql.NullString
		State                 string
		Version               int
		Language              sql.NullString
		Transcript            sql.NullString
		Summary               sql.NullString
		SuggestedDiagnosis    sql.NullString
		SuggestedPrescription sql.NullString
		Created               time.Time
		Updated               time.Time
	}

	//Tombstone keeps a terminal state of a removed draft
	Tombstone struct {
		ID      string
		UserID  string
		State   string
		Created time.Time
	}

	//Session table, a finalized clinical record
	Session struct {
		ID                    string
		UserID                string
		PatientName           string
		PatientAge            string
		Transcript            string
		Summary               string
		SuggestedDiagnosis    string
		SuggestedPrescription string
		FinalDiagnosis        string
		FinalPrescription     string
		ExaminationResults    sql.NullString
		TreatmentPlan         sql.NullString
		DoctorNotes           sql.NullString
		MediaURLs             []string
		DocumentKey           string
		DocumentURL           string
		NotifyEmail           sql.NullString
		Created               time.Time
		Updated               time.Time
	}

	//Usage table, minutes per user per month
	Usage struct {
		UserID          string
		Year            int
		Month           int
		MinutesUsed     float64
		MinutesReserved float64
		Updated         time.Time
	}

	//Settings table, per user analysis prompts
	Settings struct {
		UserID        string
		ClinicPrompt  sql.NullString
		SummaryPrompt sql.NullString
		Updated       time.Time
	}
)
