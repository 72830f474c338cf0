package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"time"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// controllerTimeLayout is what the locker controller firmware prints.
const controllerTimeLayout = "2006-01-02 15:04:05"

// parseTimestamp accepts RFC 3339 or the controller's layout, the latter in
// loc.
func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(controllerTimeLayout, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decodeFields reads the named string fields from a JSON object body or, for
// anything else, from form values. JSON numbers are kept in their literal
// form so digits-only checks see what the client sent.
func decodeFields(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))

	if !isJSONRequest(r) {
		for _, n := range names {
			out[n] = r.FormValue(n)
		}
		return out, nil
	}

	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.ValidationError("Invalid request body").WithCause(err)
	}
	for _, n := range names {
		v, ok := raw[n]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[n] = s
			continue
		}
		var num json.Number
		if err := json.Unmarshal(v, &num); err == nil {
			out[n] = num.String()
			continue
		}
		return nil, apperrors.InvalidInput(n, "must be a string or number")
	}
	return out, nil
}
