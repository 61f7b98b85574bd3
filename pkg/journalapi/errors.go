package journalapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"resty.dev/v3"

	"journal/internal/core"
)

// errorBody covers both {"detail": "..."} and {"detail": [{"msg": "..."}]} error shapes
// as well as a plain {"message": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func (b *errorBody) text() string {
	if b == nil {
		return ""
	}
	if b.Message != "" {
		return b.Message
	}
	if len(b.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(b.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func kindOf(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.ErrAuth
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusConflict:
		return core.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.ErrValidation
	default:
		return core.ErrTransport
	}
}

// check converts a resty outcome into nil or a *core.APIError.
func check(res *resty.Response, err error) error {
	if err != nil {
		return core.TransportError(err)
	}
	if !res.IsError() {
		return nil
	}

	status := res.StatusCode()
	body, _ := res.Error().(*errorBody)

	message := body.text()
	if message == "" {
		message = http.StatusText(status)
	}

	return core.NewError(kindOf(status), status, message)
}

// asConflict reclassifies a duplicate-registration rejection, which the server reports as 400.
func asConflict(err error) error {
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) || !errors.Is(apiErr.Kind, core.ErrValidation) {
		return err
	}
	if strings.Contains(strings.ToLower(apiErr.Message), "already") {
		apiErr.Kind = core.ErrConflict
	}
	return err
}
