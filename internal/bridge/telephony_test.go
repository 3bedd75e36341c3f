package bridge

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTelephonyEvents(t *testing.T) {
	start, err := ParseTelephonyEvent([]byte(`{"event":"start","start":{"callSid":"CA123","streamSid":"MZ456"}}`))
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	if start.Type != TelephonyStart || start.CallSID != "CA123" || start.StreamSID != "MZ456" {
		t.Errorf("start parsed as %+v", start)
	}

	media, err := ParseTelephonyEvent([]byte(`{"event":"media","streamSid":"MZ456","media":{"payload":"AAAA"}}`))
	if err != nil {
		t.Fatalf("parse media: %v", err)
	}
	if media.Type != TelephonyMedia || media.Payload != "AAAA" {
		t.Errorf("media parsed as %+v", media)
	}

	stop, err := ParseTelephonyEvent([]byte(`{"event":"stop","streamSid":"MZ456"}`))
	if err != nil {
		t.Fatalf("parse stop: %v", err)
	}
	if stop.Type != TelephonyStop {
		t.Errorf("stop parsed as %+v", stop)
	}
}

func TestParseTelephonyEventRejectsMalformed(t *testing.T) {
	if _, err := ParseTelephonyEvent([]byte(`not json`)); err == nil {
		t.Error("malformed JSON accepted")
	}
	if _, err := ParseTelephonyEvent([]byte(`{"event":"start"}`)); err == nil {
		t.Error("start without start block accepted")
	}
	var unknown ErrUnknownTelephonyEvent
	if _, err := ParseTelephonyEvent([]byte(`{"event":"mark"}`)); !errors.As(err, &unknown) {
		t.Errorf("unknown event error = %v", err)
	}
}

func TestMarshalOutboundFrames(t *testing.T) {
	data, err := MarshalMediaFrame("MZ456", "AAAA")
	if err != nil {
		t.Fatalf("MarshalMediaFrame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("outbound media frame not JSON: %v", err)
	}
	if frame["event"] != "media" || frame["streamSid"] != "MZ456" {
		t.Errorf("media frame = %v", frame)
	}

	data, err = MarshalStopFrame("MZ456")
	if err != nil {
		t.Fatalf("MarshalStopFrame: %v", err)
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("stop frame not JSON: %v", err)
	}
	if frame["event"] != "stop" {
		t.Errorf("stop frame = %v", frame)
	}
}
