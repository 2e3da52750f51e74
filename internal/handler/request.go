package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/dukerupert/cashtrackr/internal/apperr"
	"github.com/dukerupert/cashtrackr/internal/validation"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = apperr.New(apperr.KindValidation, http.StatusBadRequest, "JSON no válido")

// decode reads a JSON body into dst. An empty body leaves dst untouched so
// missing fields surface as field errors rather than a parse failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return errInvalidJSON
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

// decodeValid decodes dst and checks its validate tags.
func decodeValid(w http.ResponseWriter, r *http.Request, v *validation.Validator, dst any) error {
	if err := decode(w, r, dst); err != nil {
		return err
	}
	return v.Struct(dst)
}

// amount holds a money value as sent by the client. Both JSON numbers and
// numeric strings are accepted so the validator can report which rule failed.
type amount string

func (a *amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amount(s)
	default:
		*a = amount(data)
	}
	return nil
}

func (a amount) Float() (float64, error) {
	return strconv.ParseFloat(string(a), 64)
}
