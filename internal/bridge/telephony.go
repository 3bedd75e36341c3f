// Package bridge relays audio between the telephony provider's media stream
// and the real-time voice-generation service, one session per live call.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
)

// Telephony media-stream events arrive as JSON frames tagged by an "event"
// field. They are parsed once here into a closed set of variants; the relay
// logic never touches raw JSON.

type TelephonyEventType string

const (
	TelephonyStart TelephonyEventType = "start"
	TelephonyMedia TelephonyEventType = "media"
	TelephonyStop  TelephonyEventType = "stop"
)

// TelephonyEvent is one parsed inbound frame.
type TelephonyEvent struct {
	Type      TelephonyEventType
	CallSID   string
	StreamSID string
	// Payload is the base64-encoded audio of a media frame.
	Payload string
}

type telephonyFrame struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid,omitempty"`
	Start     *struct {
		CallSID   string `json:"callSid"`
		StreamSID string `json:"streamSid"`
	} `json:"start,omitempty"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

// ErrUnknownTelephonyEvent marks frames outside the supported event set.
type ErrUnknownTelephonyEvent struct {
	Event string
}

func (e ErrUnknownTelephonyEvent) Error() string {
	return fmt.Sprintf("unknown telephony event %q", e.Event)
}

// ParseTelephonyEvent decodes one inbound media-stream frame.
func ParseTelephonyEvent(data []byte) (TelephonyEvent, error) {
	var frame telephonyFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return TelephonyEvent{}, fmt.Errorf("malformed telephony frame: %w", err)
	}

	switch TelephonyEventType(frame.Event) {
	case TelephonyStart:
		if frame.Start == nil {
			return TelephonyEvent{}, fmt.Errorf("start frame missing start block")
		}
		return TelephonyEvent{
			Type:      TelephonyStart,
			CallSID:   frame.Start.CallSID,
			StreamSID: frame.Start.StreamSID,
		}, nil
	case TelephonyMedia:
		if frame.Media == nil {
			return TelephonyEvent{}, fmt.Errorf("media frame missing media block")
		}
		return TelephonyEvent{
			Type:      TelephonyMedia,
			StreamSID: frame.StreamSID,
			Payload:   frame.Media.Payload,
		}, nil
	case TelephonyStop:
		return TelephonyEvent{Type: TelephonyStop, StreamSID: frame.StreamSID}, nil
	default:
		return TelephonyEvent{}, ErrUnknownTelephonyEvent{Event: frame.Event}
	}
}

type outboundMediaFrame struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

type outboundStopFrame struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

// MarshalMediaFrame builds an outbound media frame in the provider's framing.
func MarshalMediaFrame(streamSID, payloadB64 string) ([]byte, error) {
	frame := outboundMediaFrame{Event: string(TelephonyMedia), StreamSID: streamSID}
	frame.Media.Payload = payloadB64
	return json.Marshal(frame)
}

// MarshalStopFrame builds the frame requesting a graceful hangup.
func MarshalStopFrame(streamSID string) ([]byte, error) {
	return json.Marshal(outboundStopFrame{Event: string(TelephonyStop), StreamSID: streamSID})
}

// TelephonyConn is the session's view of the provider-side connection.
type TelephonyConn interface {
	ReadEvent(ctx context.Context) (TelephonyEvent, error)
	SendMedia(ctx context.Context, streamSID, payloadB64 string) error
	SendStop(ctx context.Context, streamSID string) error
	Close() error
}

// wsTelephonyConn adapts a websocket to TelephonyConn.
type wsTelephonyConn struct {
	ws *websocket.Conn
}

// NewTelephonyConn wraps an accepted media-stream websocket.
func NewTelephonyConn(ws *websocket.Conn) TelephonyConn {
	return &wsTelephonyConn{ws: ws}
}

func (c *wsTelephonyConn) ReadEvent(ctx context.Context) (TelephonyEvent, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return TelephonyEvent{}, err
	}
	return ParseTelephonyEvent(data)
}

func (c *wsTelephonyConn) SendMedia(ctx context.Context, streamSID, payloadB64 string) error {
	data, err := MarshalMediaFrame(streamSID, payloadB64)
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *wsTelephonyConn) SendStop(ctx context.Context, streamSID string) error {
	data, err := MarshalStopFrame(streamSID)
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *wsTelephonyConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "session ended")
}
