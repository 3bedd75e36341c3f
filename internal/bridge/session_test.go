package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"fixline_backend/internal/callagent"
	"fixline_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTelephony struct {
	events   chan TelephonyEvent
	readErrs chan error

	mu    sync.Mutex
	media []string
	stops int
}

func newFakeTelephony() *fakeTelephony {
	return &fakeTelephony{
		events:   make(chan TelephonyEvent, 16),
		readErrs: make(chan error, 16),
	}
}

func (f *fakeTelephony) ReadEvent(ctx context.Context) (TelephonyEvent, error) {
	select {
	case err := <-f.readErrs:
		return TelephonyEvent{}, err
	default:
	}
	select {
	case event, ok := <-f.events:
		if !ok {
			return TelephonyEvent{}, io.EOF
		}
		return event, nil
	case <-ctx.Done():
		return TelephonyEvent{}, ctx.Err()
	}
}

func (f *fakeTelephony) SendMedia(_ context.Context, _, payloadB64 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, payloadB64)
	return nil
}

func (f *fakeTelephony) SendStop(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeTelephony) Close() error { return nil }

func (f *fakeTelephony) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeTelephony) mediaSent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.media...)
}

type fakeVoice struct {
	events chan VoiceEvent

	mu       sync.Mutex
	appended []string
	config   *SessionConfig
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{events: make(chan VoiceEvent, 16)}
}

func (f *fakeVoice) SendSessionConfig(_ context.Context, cfg SessionConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = &cfg
	return nil
}

func (f *fakeVoice) AppendAudio(_ context.Context, audioB64 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, audioB64)
	return nil
}

func (f *fakeVoice) ReadEvent(ctx context.Context) (VoiceEvent, error) {
	select {
	case event, ok := <-f.events:
		if !ok {
			return VoiceEvent{}, io.EOF
		}
		return event, nil
	case <-ctx.Done():
		return VoiceEvent{}, ctx.Err()
	}
}

func (f *fakeVoice) Close() error { return nil }

func (f *fakeVoice) sessionConfig() *SessionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config
}

type fakeCompleter struct {
	mu         sync.Mutex
	calls      int
	transcript callagent.Transcript
	voicemail  bool
}

func (f *fakeCompleter) SystemPrompt(callagent.CallContext) string {
	return "test instructions"
}

func (f *fakeCompleter) CompleteCall(_ context.Context, _ callagent.CallRecord, transcript callagent.Transcript, voicemailDetected bool, _ *string) callagent.CallOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.transcript = transcript
	f.voicemail = voicemailDetected
	return callagent.CallOutcome{Status: callagent.OutcomeGoalAchieved}
}

func (f *fakeCompleter) snapshot() (int, callagent.Transcript, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.transcript, f.voicemail
}

type fakeLookup struct {
	rec callagent.CallRecord
}

func (f fakeLookup) RecordForCall(_ context.Context, _ uuid.UUID, callSID string) (callagent.CallRecord, error) {
	rec := f.rec
	rec.CallSID = &callSID
	return rec, nil
}

func testRecord() callagent.CallRecord {
	callID := uuid.New()
	return callagent.CallRecord{
		ID:     callID,
		LeadID: uuid.New(),
		Context: callagent.CallContext{
			CallID:   callID,
			CallType: callagent.CallTypeQualifyLead,
		},
		Attempt: 1,
	}
}

func startedSession(t *testing.T, tel *fakeTelephony, voice *fakeVoice, completer *fakeCompleter, settings SessionSettings) *Session {
	t.Helper()
	rec := testRecord()
	dial := func(context.Context) (VoiceConn, error) { return voice, nil }
	session := NewSession(rec.ID, tel, dial, completer, fakeLookup{rec: rec}, nil, settings, logger.New("development"), nil)
	tel.events <- TelephonyEvent{Type: TelephonyStart, CallSID: "CA100", StreamSID: "MZ100"}
	return session
}

func waitClosed(t *testing.T, session *Session) {
	t.Helper()
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close; state %s", session.State())
	}
	if session.State() != StateClosed {
		t.Fatalf("final state = %s, want %s", session.State(), StateClosed)
	}
}

func TestSessionDurationCeilingForcesClose(t *testing.T) {
	tel := newFakeTelephony()
	voice := newFakeVoice()
	completer := &fakeCompleter{}
	session := startedSession(t, tel, voice, completer, SessionSettings{MaxCallDuration: 100 * time.Millisecond})

	go session.Run(context.Background())
	waitClosed(t, session)

	calls, _, _ := completer.snapshot()
	if calls != 1 {
		t.Fatalf("outcome produced %d times, want exactly 1", calls)
	}
	if tel.stopCount() != 1 {
		t.Errorf("stop frames sent = %d, want 1", tel.stopCount())
	}
}

func TestSessionStopEventEndsCall(t *testing.T) {
	tel := newFakeTelephony()
	voice := newFakeVoice()
	completer := &fakeCompleter{}
	session := startedSession(t, tel, voice, completer, SessionSettings{MaxCallDuration: time.Minute})

	go session.Run(context.Background())

	voice.events <- VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerAssistant, Text: "Hello, this is the Fixline assistant."}
	voice.events <- VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerUser, Text: "Hi, yes, the leak is still there."}
	time.Sleep(50 * time.Millisecond)
	tel.events <- TelephonyEvent{Type: TelephonyStop, StreamSID: "MZ100"}

	waitClosed(t, session)

	calls, transcript, voicemail := completer.snapshot()
	if calls != 1 {
		t.Fatalf("outcome produced %d times, want exactly 1", calls)
	}
	if voicemail {
		t.Error("ordinary dialogue flagged as voicemail")
	}
	if len(transcript) != 2 {
		t.Fatalf("transcript has %d turns, want 2", len(transcript))
	}
	if transcript[1].Speaker != callagent.SpeakerUser {
		t.Errorf("second turn speaker = %s, want user", transcript[1].Speaker)
	}

	if cfg := voice.sessionConfig(); cfg == nil || cfg.Instructions != "test instructions" {
		t.Error("voice service did not receive the system instructions")
	}
}

func TestSessionVoicemailGraceHangsUp(t *testing.T) {
	tel := newFakeTelephony()
	voice := newFakeVoice()
	completer := &fakeCompleter{}
	session := startedSession(t, tel, voice, completer, SessionSettings{
		MaxCallDuration: time.Minute,
		VoicemailGrace:  50 * time.Millisecond,
	})

	go session.Run(context.Background())

	voice.events <- VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerUser, Text: "please leave a message after the beep"}

	waitClosed(t, session)

	calls, _, voicemail := completer.snapshot()
	if calls != 1 {
		t.Fatalf("outcome produced %d times, want exactly 1", calls)
	}
	if !voicemail {
		t.Error("voicemail greeting did not set the voicemail flag")
	}
	if !session.VoicemailFlagged() {
		t.Error("session does not report voicemail")
	}
}

func TestSessionTransportErrorStillProducesOutcome(t *testing.T) {
	tel := newFakeTelephony()
	voice := newFakeVoice()
	completer := &fakeCompleter{}
	session := startedSession(t, tel, voice, completer, SessionSettings{MaxCallDuration: time.Minute})

	go session.Run(context.Background())

	voice.events <- VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerAssistant, Text: "Hello?"}
	time.Sleep(50 * time.Millisecond)
	close(voice.events) // voice connection drops

	waitClosed(t, session)

	calls, transcript, _ := completer.snapshot()
	if calls != 1 {
		t.Fatalf("outcome produced %d times, want exactly 1", calls)
	}
	if len(transcript) != 1 {
		t.Errorf("partial transcript has %d turns, want 1", len(transcript))
	}
}

func TestSessionRelaysAudioBothWays(t *testing.T) {
	tel := newFakeTelephony()
	voice := newFakeVoice()
	completer := &fakeCompleter{}
	session := startedSession(t, tel, voice, completer, SessionSettings{MaxCallDuration: time.Minute})

	go session.Run(context.Background())

	inbound := base64.StdEncoding.EncodeToString([]byte("caller-audio"))
	outbound := base64.StdEncoding.EncodeToString([]byte("assistant-audio"))
	tel.events <- TelephonyEvent{Type: TelephonyMedia, StreamSID: "MZ100", Payload: inbound}
	voice.events <- VoiceEvent{Type: VoiceAudioDelta, Audio: outbound}
	time.Sleep(50 * time.Millisecond)
	tel.events <- TelephonyEvent{Type: TelephonyStop, StreamSID: "MZ100"}

	waitClosed(t, session)

	voice.mu.Lock()
	appended := append([]string(nil), voice.appended...)
	voice.mu.Unlock()
	if len(appended) != 1 || appended[0] != inbound {
		t.Errorf("inbound audio not relayed to voice service: %v", appended)
	}
	if media := tel.mediaSent(); len(media) != 1 || media[0] != outbound {
		t.Errorf("outbound audio not relayed to telephony: %v", media)
	}
}

func TestSessionSkipsBookkeepingFrames(t *testing.T) {
	tel := newFakeTelephony()
	voice := newFakeVoice()
	completer := &fakeCompleter{}

	// A "connected" frame precedes the start event on real streams.
	tel.readErrs <- ErrUnknownTelephonyEvent{Event: "connected"}
	session := startedSession(t, tel, voice, completer, SessionSettings{MaxCallDuration: time.Minute})

	go session.Run(context.Background())

	voice.events <- VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerUser, Text: "hello"}
	time.Sleep(50 * time.Millisecond)

	// A mid-stream "mark" frame; the media frame behind it must still relay.
	tel.readErrs <- ErrUnknownTelephonyEvent{Event: "mark"}
	inbound := base64.StdEncoding.EncodeToString([]byte("caller-audio"))
	tel.events <- TelephonyEvent{Type: TelephonyMedia, StreamSID: "MZ100", Payload: inbound}
	time.Sleep(50 * time.Millisecond)
	tel.events <- TelephonyEvent{Type: TelephonyStop, StreamSID: "MZ100"}

	waitClosed(t, session)

	calls, transcript, _ := completer.snapshot()
	if calls != 1 {
		t.Fatalf("outcome produced %d times, want exactly 1", calls)
	}
	if len(transcript) != 1 {
		t.Errorf("transcript has %d turns, want 1", len(transcript))
	}
	voice.mu.Lock()
	appended := append([]string(nil), voice.appended...)
	voice.mu.Unlock()
	if len(appended) != 1 || appended[0] != inbound {
		t.Errorf("audio after bookkeeping frame not relayed: %v", appended)
	}
	if session.CallSID() != "CA100" {
		t.Errorf("session call sid = %q, want CA100", session.CallSID())
	}
}

func TestSessionDialFailureReleasesTableEntry(t *testing.T) {
	tel := newFakeTelephony()
	table := NewSessionTable()
	rec := testRecord()

	var session *Session
	lookup := RecordLookupFunc(func(_ context.Context, _ uuid.UUID, callSID string) (callagent.CallRecord, error) {
		table.Put(callSID, session)
		r := rec
		r.CallSID = &callSID
		return r, nil
	})
	dial := func(context.Context) (VoiceConn, error) {
		return nil, errors.New("voice service unreachable")
	}
	session = NewSession(rec.ID, tel, dial, &fakeCompleter{}, lookup, nil, SessionSettings{MaxCallDuration: time.Minute}, logger.New("development"), func(callSID string) {
		table.Release(callSID, session)
	})
	tel.events <- TelephonyEvent{Type: TelephonyStart, CallSID: "CA200", StreamSID: "MZ200"}

	go session.Run(context.Background())
	waitClosed(t, session)

	if sid := session.CallSID(); sid != "CA200" {
		t.Errorf("session call sid = %q, want CA200", sid)
	}
	if _, ok := table.Get("CA200"); ok {
		t.Fatalf("table still holds CA200 after teardown; len %d", table.Len())
	}
}

func TestSessionShutdownDrains(t *testing.T) {
	tel := newFakeTelephony()
	voice := newFakeVoice()
	completer := &fakeCompleter{}
	session := startedSession(t, tel, voice, completer, SessionSettings{MaxCallDuration: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go session.Run(ctx)

	voice.events <- VoiceEvent{Type: VoiceTranscriptDelta, Speaker: VoiceSpeakerUser, Text: "hello"}
	time.Sleep(50 * time.Millisecond)
	cancel() // process shutdown

	waitClosed(t, session)

	calls, transcript, _ := completer.snapshot()
	if calls != 1 {
		t.Fatalf("outcome produced %d times on shutdown, want exactly 1", calls)
	}
	if len(transcript) != 1 {
		t.Errorf("transcript lost on shutdown: %d turns", len(transcript))
	}
}
