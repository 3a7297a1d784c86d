package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

// maxBodyBytes bounds request bodies; minutes content is the largest payload.
const maxBodyBytes = 4 << 20

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	From    string         `json:"from,omitempty"`
	To      string         `json:"to,omitempty"`
	Details map[string]int `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

func statusFor(kind goverr.Kind) int {
	switch kind {
	case goverr.KindNotFound:
		return http.StatusNotFound
	case goverr.KindConflict:
		return http.StatusConflict
	case goverr.KindInvalidTransition, goverr.KindBadRequest:
		return http.StatusBadRequest
	case goverr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a governance error to its status. Internal errors are
// logged with their cause and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var gerr *goverr.Error
	if !errors.As(err, &gerr) || gerr.Kind == goverr.KindInternal {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   string(goverr.KindInternal),
			Message: "internal error",
		})
		return
	}
	writeJSON(w, statusFor(gerr.Kind), ErrorResponse{
		Error:   string(gerr.Kind),
		Message: gerr.Message,
		From:    gerr.From,
		To:      gerr.To,
		Details: gerr.Details,
	})
}

func writeStatus(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

// decodeJSON reads a single JSON object into v. Unknown fields are rejected
// so typos in optional fields do not silently become no-ops.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, true)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decodeBody(w, r, v, false)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, required bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if required {
				return goverr.BadRequest("request body is required")
			}
			return nil
		}
		return goverr.BadRequest("invalid request body: %v", err)
	}
	if dec.More() {
		return goverr.BadRequest("request body must contain a single JSON object")
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goverr.BadRequest("%s must be an integer (got %q)", name, raw)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, goverr.BadRequest("%s must be true or false (got %q)", name, raw)
	}
	return b, nil
}

func queryDate(r *http.Request, name string) (types.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return types.Date{}, nil
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		return types.Date{}, goverr.BadRequest("%s: %v", name, err)
	}
	return d, nil
}

func queryPage(r *http.Request) (types.Page, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return types.Page{}, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return types.Page{}, err
	}
	if limit < 0 || offset < 0 {
		return types.Page{}, goverr.BadRequest("limit and offset cannot be negative")
	}
	return types.Page{Limit: limit, Offset: offset}, nil
}

// listResponse wraps list results so the array is never encoded as null.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}
