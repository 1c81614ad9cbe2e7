package contact

// Message is a contact-form submission as it travels from the public
// endpoint through the queue to the email worker.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}
