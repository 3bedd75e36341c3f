package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"fixline_backend/platform/config"

	"github.com/coder/websocket"
)

// Voice-service events, like telephony frames, are parsed once at the
// boundary into a closed set of variants.

type VoiceEventType string

const (
	VoiceAudioDelta      VoiceEventType = "audio_delta"
	VoiceTranscriptDelta VoiceEventType = "transcript_delta"
	VoiceResponseDone    VoiceEventType = "response_done"
	VoiceError           VoiceEventType = "error"
)

// VoiceSpeaker tags which side of the conversation a transcript delta
// belongs to.
type VoiceSpeaker string

const (
	VoiceSpeakerAssistant VoiceSpeaker = "assistant"
	VoiceSpeakerUser      VoiceSpeaker = "user"
)

// VoiceEvent is one parsed event from the voice service. Events the bridge
// does not act on parse to ok=false and are skipped.
type VoiceEvent struct {
	Type    VoiceEventType
	Audio   string // base64 audio delta
	Speaker VoiceSpeaker
	Text    string // transcript delta text
	Message string // error message
}

type voiceFrame struct {
	Type       string `json:"type"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// parseVoiceEvent maps the service's event vocabulary onto the bridge's
// closed set. Unrecognized event types are not an error; the service emits
// many bookkeeping events the relay has no use for.
func parseVoiceEvent(data []byte) (VoiceEvent, bool, error) {
	var frame voiceFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return VoiceEvent{}, false, fmt.Errorf("malformed voice-service frame: %w", err)
	}

	switch frame.Type {
	case "response.audio.delta":
		return VoiceEvent{Type: VoiceAudioDelta, Audio: frame.Delta}, true, nil
	case "response.audio_transcript.delta":
		return VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerAssistant, Text: frame.Delta}, true, nil
	case "conversation.item.input_audio_transcription.completed":
		return VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerUser, Text: frame.Transcript}, true, nil
	case "response.done":
		return VoiceEvent{Type: VoiceResponseDone}, true, nil
	case "error":
		msg := "voice service error"
		if frame.Error != nil {
			msg = frame.Error.Message
		}
		return VoiceEvent{Type: VoiceError, Message: msg}, true, nil
	default:
		return VoiceEvent{}, false, nil
	}
}

// SessionConfig is the one-time configuration sent to the voice service when
// a call starts.
type SessionConfig struct {
	Instructions string
	Voice        string
	Greeting     string
}

type voiceSessionUpdate struct {
	Type    string `json:"type"`
	Session struct {
		Instructions      string `json:"instructions"`
		Voice             string `json:"voice"`
		InputAudioFormat  string `json:"input_audio_format"`
		OutputAudioFormat string `json:"output_audio_format"`
		TurnDetection     struct {
			Type string `json:"type"`
		} `json:"turn_detection"`
		InputAudioTranscription struct {
			Model string `json:"model"`
		} `json:"input_audio_transcription"`
	} `json:"session"`
}

type voiceAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type voiceResponseCreate struct {
	Type     string `json:"type"`
	Response struct {
		Instructions string `json:"instructions,omitempty"`
	} `json:"response"`
}

// VoiceConn is the session's view of the voice-service connection.
type VoiceConn interface {
	SendSessionConfig(ctx context.Context, cfg SessionConfig) error
	AppendAudio(ctx context.Context, audioB64 string) error
	ReadEvent(ctx context.Context) (VoiceEvent, error)
	Close() error
}

type wsVoiceConn struct {
	ws *websocket.Conn
}

// DialVoiceService opens the outbound voice-service connection.
func DialVoiceService(ctx context.Context, cfg config.VoiceServiceConfig) (VoiceConn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.GetVoiceServiceAPIKey())

	ws, _, err := websocket.Dial(ctx, cfg.GetVoiceServiceURL(), &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial voice service: %w", err)
	}
	// Audio frames are small but frequent; the default read limit is enough
	// for config acks but not for long transcript events.
	ws.SetReadLimit(1 << 20)

	return &wsVoiceConn{ws: ws}, nil
}

func (c *wsVoiceConn) SendSessionConfig(ctx context.Context, cfg SessionConfig) error {
	update := voiceSessionUpdate{Type: "session.update"}
	update.Session.Instructions = cfg.Instructions
	update.Session.Voice = cfg.Voice
	update.Session.InputAudioFormat = "g711_ulaw"
	update.Session.OutputAudioFormat = "g711_ulaw"
	update.Session.TurnDetection.Type = "server_vad"
	update.Session.InputAudioTranscription.Model = "whisper-1"

	if err := c.writeJSON(ctx, update); err != nil {
		return err
	}

	if cfg.Greeting == "" {
		return nil
	}
	kickoff := voiceResponseCreate{Type: "response.create"}
	kickoff.Response.Instructions = "Open the call with: " + cfg.Greeting
	return c.writeJSON(ctx, kickoff)
}

func (c *wsVoiceConn) AppendAudio(ctx context.Context, audioB64 string) error {
	return c.writeJSON(ctx, voiceAudioAppend{Type: "input_audio_buffer.append", Audio: audioB64})
}

// ReadEvent blocks until the service emits an event the bridge acts on.
func (c *wsVoiceConn) ReadEvent(ctx context.Context) (VoiceEvent, error) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return VoiceEvent{}, err
		}
		event, ok, err := parseVoiceEvent(data)
		if err != nil {
			return VoiceEvent{}, err
		}
		if ok {
			return event, nil
		}
	}
}

func (c *wsVoiceConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "session ended")
}

func (c *wsVoiceConn) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, data)
}
