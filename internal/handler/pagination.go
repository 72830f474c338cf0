package handler

import (
	"net/http"
	"strconv"
)

// parseLimit reads ?limit=. Zero means the service default.
func parseLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		return 0
	}
	return limit
}
