package json

import (
	"encoding/json"
	"errors"
	"net/http"
)

const maxBodyBytes = 1 << 20 // 1MB

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Read decodes the request body into v, rejecting unknown fields and
// oversized payloads.
func Read(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	return decoder.Decode(v)
}

func Write(w http.ResponseWriter, status int, data any) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func WriteError(w http.ResponseWriter, status int, err error, message string) {
	_ = Write(w, status, errorResponse{
		Error:   err.Error(),
		Message: message,
	})
}

func WriteValidationError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusBadRequest, err, err.Error())
}

func WriteBadRequestError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, errors.New("bad request"), message)
}

func WriteNotFoundError(w http.ResponseWriter, err error, message string) {
	WriteError(w, http.StatusNotFound, err, message)
}

func WriteInternalError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusInternalServerError, err, "The server encountered a problem and could not process your request")
}
