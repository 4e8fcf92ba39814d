package models

// Alumni is the read-only directory record the mentorship core references by id.
type Alumni struct {
	ID             string `db:"id" json:"id"`
	FullName       string `db:"full_name" json:"fullName"`
	Email          string `db:"email" json:"email"`
	GraduationYear int    `db:"graduation_year" json:"graduationYear"`
	Degree         string `db:"degree" json:"degree"`
	CurrentCompany string `db:"current_company" json:"currentCompany"`
	Industry       string `db:"industry" json:"industry"`
}
