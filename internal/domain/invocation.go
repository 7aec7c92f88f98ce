package domain

// Attachment is a file attached to the invoking message.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size,omitempty"`
}

// Invocation is a single eval command as received from the chat surface.
// Language is the token exactly as the user typed it and Code is the free-form
// trailing text (flags, option lines, code, or a link= marker).
type Invocation struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Mention     string       `json:"mention,omitempty"`
	Language    string       `json:"language"`
	Code        string       `json:"code"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Options are the boolean flags recognised on an invocation.
type Options struct {
	Wrapped bool
	Stats   bool
}

// ExecutionRequest is everything the remote provider needs for one run.
// Language must be a canonical identifier before the request is encoded.
type ExecutionRequest struct {
	Language      string
	Code          string
	Stdin         string
	CompilerFlags []string
	CLIOptions    []string
	Args          []string
	Wrapped       bool
	WantStats     bool
}
