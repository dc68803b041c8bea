package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http/httpguts"

	"github.com/luciancaetano/mmapi"
)

// maxErrorBody bounds how much of a failed response is read while looking for
// a structured error.
const maxErrorBody = 1 << 20

// Query makes a request against the REST API and decodes the JSON response
// into out. A nil out discards the body.
func (s *Session) Query(ctx context.Context, method, endpoint string, query url.Values, body []byte, out any) error {
	op := method + " " + endpoint

	// an HTTP method is a token, the same grammar as a header field name
	if !httpguts.ValidHeaderFieldName(method) {
		return &mmapi.Error{Kind: mmapi.KindMethod, Op: op, Err: fmt.Errorf("%q", method)}
	}

	u := s.endpointURL(endpoint)
	if len(query) > 0 {
		values := u.Query()
		for key, vals := range query {
			for _, v := range vals {
				values.Add(key, v)
			}
		}
		u.RawQuery = values.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return &mmapi.Error{Kind: mmapi.KindTransport, Op: op, Err: err}
	}

	if err := s.setRequestHeaders(req, op); err != nil {
		return err
	}

	requestID := uuid.NewString()
	req.Header.Set(mmapi.RequestIDHeader, requestID)

	log := s.log.WithFields(logrus.Fields{
		"method":     method,
		"url":        u.String(),
		"request_id": requestID,
	})
	log.Debug("Making request")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &mmapi.Error{Kind: mmapi.KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Error("Got non-success status from the API")
		return classifyFailure(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &mmapi.Error{Kind: mmapi.KindSerialization, Op: op, Err: err}
	}

	return nil
}

// Post encodes body as JSON and POSTs it to endpoint.
func (s *Session) Post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &mmapi.Error{Kind: mmapi.KindSerialization, Op: http.MethodPost + " " + endpoint, Err: err}
	}
	return s.Query(ctx, http.MethodPost, endpoint, nil, payload, out)
}

// setRequestHeaders sets the headers every API call carries.
func (s *Session) setRequestHeaders(req *http.Request, op string) error {
	token := s.AuthToken()
	if token == "" {
		return mmapi.ErrMissingAuthToken
	}

	auth := "Bearer " + token
	if !httpguts.ValidHeaderFieldValue(auth) {
		return &mmapi.Error{Kind: mmapi.KindHeader, Op: op, Err: fmt.Errorf("invalid characters in the %s header", "Authorization")}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	return nil
}

// classifyFailure turns a non-2xx response into an *APIError when the body is
// the server's structured error, and a *StatusError otherwise.
func classifyFailure(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		if apiErr, ok := decodeAPIError(body); ok {
			return apiErr
		}
	}
	return &mmapi.StatusError{StatusCode: resp.StatusCode}
}

func decodeAPIError(body []byte) (*mmapi.APIError, bool) {
	var raw struct {
		ID         *string `json:"id"`
		Message    *string `json:"message"`
		RequestID  string  `json:"request_id"`
		StatusCode *int    `json:"status_code"`
		IsOAuth    bool    `json:"is_oauth"`
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}

	if raw.ID == nil || raw.Message == nil || raw.StatusCode == nil {
		return nil, false
	}

	return &mmapi.APIError{
		ID:         *raw.ID,
		Message:    *raw.Message,
		RequestID:  raw.RequestID,
		StatusCode: *raw.StatusCode,
		IsOAuth:    raw.IsOAuth,
	}, true
}
