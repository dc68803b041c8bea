package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/mmapi"
)

// TestEncode tests the Encode function with various inputs
func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		seq       int64
		action    string
		data      any
		want      string
		wantError bool
	}{
		{
			name:   "action with data",
			seq:    2,
			action: "user_typing",
			data:   map[string]string{"channel_id": "c1"},
			want:   `{"seq":2,"action":"user_typing","data":{"channel_id":"c1"}}`,
		},
		{
			name:   "action without data",
			seq:    3,
			action: "get_statuses",
			want:   `{"seq":3,"action":"get_statuses"}`,
		},
		{
			name:      "missing action",
			seq:       1,
			wantError: true,
		},
		{
			name:      "unencodable data",
			seq:       1,
			action:    "bad",
			data:      make(chan int),
			wantError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Encode(tt.seq, tt.action, tt.data)
			if tt.wantError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEncodeAuthChallenge(t *testing.T) {
	t.Parallel()

	got, err := EncodeAuthChallenge("abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":1,"action":"authentication_challenge","data":{"token":"abc"}}`, string(got))

	_, err = EncodeAuthChallenge("")
	assert.True(t, errors.Is(err, mmapi.ErrMissingAuthToken))
}

// TestDecode tests decoding of inbound frames
func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantEvent *mmapi.Event
		wantReply *Reply
		wantError bool
	}{
		{
			name:  "posted event",
			input: `{"event":"posted","data":{"channel_name":"town-square"},"broadcast":{"omit_users":{"u2":true},"user_id":"","channel_id":"c1","team_id":"t1"},"seq":4}`,
			wantEvent: &mmapi.Event{
				Event: mmapi.EventPosted,
				Data:  json.RawMessage(`{"channel_name":"town-square"}`),
				Broadcast: mmapi.Broadcast{
					OmitUsers: map[string]bool{"u2": true},
					ChannelID: "c1",
					TeamID:    "t1",
				},
				Seq: 4,
			},
		},
		{
			name:  "unknown event name is kept",
			input: `{"event":"custom_plugin_event","data":null,"broadcast":{"channel_id":"","team_id":""},"seq":9}`,
			wantEvent: &mmapi.Event{
				Event: "custom_plugin_event",
				Data:  json.RawMessage(`null`),
				Seq:   9,
			},
		},
		{
			name:      "ok reply",
			input:     `{"status":"OK","seq_reply":1}`,
			wantReply: &Reply{Status: "OK", SeqReply: 1},
		},
		{
			name:  "failed reply with error",
			input: `{"status":"FAIL","seq_reply":1,"error":{"id":"api.web_socket_router.not_authenticated.app_error","message":"not authenticated","request_id":"","status_code":401,"is_oauth":false}}`,
			wantReply: &Reply{
				Status:   "FAIL",
				SeqReply: 1,
				Error: &mmapi.APIError{
					ID:         "api.web_socket_router.not_authenticated.app_error",
					Message:    "not authenticated",
					StatusCode: 401,
				},
			},
		},
		{
			name:      "reply marker wins over event name",
			input:     `{"event":"posted","status":"OK","seq_reply":7}`,
			wantReply: &Reply{Status: "OK", SeqReply: 7},
		},
		{
			name:      "null reply marker is still a reply",
			input:     `{"event":"posted","status":"OK","seq_reply":null}`,
			wantReply: &Reply{Status: "OK"},
		},
		{
			name:      "non-numeric reply marker",
			input:     `{"status":"OK","seq_reply":"one"}`,
			wantError: true,
		},
		{
			name:      "not json",
			input:     `not json`,
			wantError: true,
		},
		{
			name:      "missing event name",
			input:     `{"data":{},"seq":1}`,
			wantError: true,
		},
		{
			name:      "empty frame",
			input:     ``,
			wantError: true,
		},
		{
			name:      "frame too large",
			input:     `"` + strings.Repeat("a", maxFrameSize) + `"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			frame, err := Decode([]byte(tt.input))
			if tt.wantError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if diff := cmp.Diff(tt.wantEvent, frame.Event); diff != "" {
				t.Errorf("Decode() event mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantReply, frame.Reply); diff != "" {
				t.Errorf("Decode() reply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReplyFailed(t *testing.T) {
	t.Parallel()

	assert.True(t, (&Reply{Status: mmapi.ReplyStatusFail}).Failed())
	assert.False(t, (&Reply{Status: mmapi.ReplyStatusOK}).Failed())
}

// BenchmarkDecode benchmarks decoding of a typical event
func BenchmarkDecode(b *testing.B) {
	data := []byte(`{"event":"typing","data":{"parent_id":"","user_id":"u1"},"broadcast":{"channel_id":"c1","team_id":""},"seq":12}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(data)
	}
}
