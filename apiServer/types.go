package apiServer

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Administrator string `json:"administrator"`
	System        string `json:"system"`
	Sequence      uint64 `json:"sequence"`
}

type administratorResponse struct {
	Identity        string `json:"identity"`
	IsAdministrator bool   `json:"isAdministrator"`
}

type transferRequest struct {
	NewAdministrator string `json:"newAdministrator"`
}

// transferResponse reports Applied=false when the target was the system
// identity; Requested is always true on success.
type transferResponse struct {
	Requested bool `json:"requested"`
	Applied   bool `json:"applied"`
}

type registerRequest struct {
	Locator     string `json:"locator"`
	Title       string `json:"title"`
	ContentHash string `json:"contentHash"`
}

type registerResponse struct {
	ID uint64 `json:"id"`
}

// documentResponse is the zero record with Found=false on a miss.
type documentResponse struct {
	Found       bool   `json:"found"`
	ID          uint64 `json:"id"`
	Locator     string `json:"locator"`
	Title       string `json:"title"`
	TitleHex    string `json:"titleHex"`
	CreatedAt   int64  `json:"createdAt"`
	Author      string `json:"author"`
	ContentHash string `json:"contentHash"`
}
