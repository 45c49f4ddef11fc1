package api

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// POST /api/tasks request body
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// error response body for every failing endpoint
type errorResponse struct {
	Error string `json:"error"`
}
