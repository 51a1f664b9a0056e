package domain

// Status is the review state of a contact submission.
type Status string

// StatusNew is assigned to every submission at intake.
const StatusNew Status = "new"

// ContactSubmission is a single persisted contact-form entry.
// ID doubles as the key-value store key.
type ContactSubmission struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Status    Status `json:"status"`
}
