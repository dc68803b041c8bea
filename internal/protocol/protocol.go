package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luciancaetano/mmapi"
)

const (
	maxFrameSize = 10 * 1024 * 1024 // 10MB max frame size
)

// Request is a frame sent by the client.
type Request struct {
	Seq    int64  `json:"seq"`
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

// Reply is the server's answer to a Request, correlated by SeqReply.
type Reply struct {
	Status   string          `json:"status"`
	SeqReply int64           `json:"seq_reply"`
	Error    *mmapi.APIError `json:"error,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Failed reports whether the server rejected the request.
func (r *Reply) Failed() bool { return r.Status == mmapi.ReplyStatusFail }

// Frame is a decoded inbound text frame: exactly one of Event and Reply is set.
type Frame struct {
	Event *mmapi.Event
	Reply *Reply
}

// envelope holds the union of event and reply fields. The presence of the
// seq_reply key, even with a null value, marks a reply.
type envelope struct {
	Event     mmapi.EventType `json:"event"`
	Data      json.RawMessage `json:"data"`
	Broadcast mmapi.Broadcast `json:"broadcast"`
	Seq       int64           `json:"seq"`
	SeqReply  json.RawMessage `json:"seq_reply"`
	Status    string          `json:"status"`
	Error     *mmapi.APIError `json:"error"`
}

// Encode encodes a client request frame.
func Encode(seq int64, action string, data any) ([]byte, error) {
	if action == "" {
		return nil, errors.New("action is required")
	}

	out, err := json.Marshal(Request{Seq: seq, Action: action, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mmapi.ErrMsgJSONProcessing, err)
	}
	if len(out) > maxFrameSize {
		return nil, fmt.Errorf("frame size %d exceeds maximum %d bytes", len(out), maxFrameSize)
	}
	return out, nil
}

// EncodeAuthChallenge encodes the authentication frame that must be the first
// frame on a connection.
func EncodeAuthChallenge(token string) ([]byte, error) {
	if token == "" {
		return nil, mmapi.ErrMissingAuthToken
	}
	return Encode(mmapi.AuthenticationSeq, mmapi.ActionAuthenticationChallenge, map[string]string{"token": token})
}

// Decode decodes an inbound text frame into an event or a reply.
func Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("%s: empty frame", mmapi.ErrMsgMalformedEvent)
	}
	if len(data) > maxFrameSize {
		return Frame{}, fmt.Errorf("frame size %d exceeds maximum %d bytes", len(data), maxFrameSize)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("%s: %w", mmapi.ErrMsgMalformedEvent, err)
	}

	if len(env.SeqReply) > 0 {
		var seq int64
		if string(env.SeqReply) != "null" {
			if err := json.Unmarshal(env.SeqReply, &seq); err != nil {
				return Frame{}, fmt.Errorf("%s: seq_reply: %w", mmapi.ErrMsgMalformedEvent, err)
			}
		}
		return Frame{Reply: &Reply{
			Status:   env.Status,
			SeqReply: seq,
			Error:    env.Error,
			Data:     env.Data,
		}}, nil
	}

	if env.Event == "" {
		return Frame{}, fmt.Errorf("%s: missing event name", mmapi.ErrMsgMalformedEvent)
	}

	return Frame{Event: &mmapi.Event{
		Event:     env.Event,
		Data:      env.Data,
		Broadcast: env.Broadcast,
		Seq:       env.Seq,
	}}, nil
}
