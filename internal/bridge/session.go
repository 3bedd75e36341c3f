package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"fixline_backend/internal/callagent"
	"fixline_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SessionState is the lifecycle of one live call.
type SessionState string

const (
	StateAwaitingStart SessionState = "AWAITING_START"
	StateStreaming     SessionState = "STREAMING"
	StateEnding        SessionState = "ENDING"
	StateClosed        SessionState = "CLOSED"
	StateError         SessionState = "ERROR"
)

// CallCompleter is the call agent surface the session needs.
type CallCompleter interface {
	SystemPrompt(callCtx callagent.CallContext) string
	CompleteCall(ctx context.Context, rec callagent.CallRecord, transcript callagent.Transcript, voicemailDetected bool, recordingKey *string) callagent.CallOutcome
}

// RecordLookup resolves the call record when the media stream starts and
// binds the provider's call identifier to it.
type RecordLookup interface {
	RecordForCall(ctx context.Context, callID uuid.UUID, callSID string) (callagent.CallRecord, error)
}

// RecordingStore persists the raw call audio. A nil store disables recording.
type RecordingStore interface {
	SaveRecording(ctx context.Context, callSID string, audio []byte) (string, error)
}

// VoiceDialer opens the voice-service connection for a starting session.
type VoiceDialer func(ctx context.Context) (VoiceConn, error)

// SessionSettings are the per-session tunables.
type SessionSettings struct {
	MaxCallDuration time.Duration
	VoicemailGrace  time.Duration
	SendTimeout     time.Duration
	Voice           string
	Greeting        string
}

func (s *SessionSettings) applyDefaults() {
	if s.MaxCallDuration <= 0 {
		s.MaxCallDuration = 10 * time.Minute
	}
	if s.VoicemailGrace <= 0 {
		s.VoicemailGrace = 5 * time.Second
	}
	if s.SendTimeout <= 0 {
		s.SendTimeout = 5 * time.Second
	}
}

// Session is the live, mutable state of one in-progress call. All fields
// below the mutex are guarded by it; everything else is owned by the
// session's goroutines.
type Session struct {
	callID    uuid.UUID
	tel       TelephonyConn
	dialVoice VoiceDialer
	agent     CallCompleter
	lookup    RecordLookup
	recs      RecordingStore
	settings  SessionSettings
	log       *logger.Logger
	onClose   func(callSID string)

	voicemailCh chan struct{}
	done        chan struct{}

	mu         sync.Mutex
	state      SessionState
	callSID    string
	streamSID  string
	rec        callagent.CallRecord
	transcript callagent.Transcript
	voicemail  bool
	audio      []byte
	completed  bool
}

// NewSession builds a session for an accepted media-stream connection. The
// call ID comes from the stream token; the provider's call SID arrives with
// the start event.
func NewSession(callID uuid.UUID, tel TelephonyConn, dialVoice VoiceDialer, agent CallCompleter, lookup RecordLookup, recs RecordingStore, settings SessionSettings, log *logger.Logger, onClose func(callSID string)) *Session {
	settings.applyDefaults()
	if onClose == nil {
		onClose = func(string) {}
	}
	return &Session{
		callID:      callID,
		tel:         tel,
		dialVoice:   dialVoice,
		agent:       agent,
		lookup:      lookup,
		recs:        recs,
		settings:    settings,
		log:         log,
		onClose:     onClose,
		voicemailCh: make(chan struct{}, 1),
		done:        make(chan struct{}),
		state:       StateAwaitingStart,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CallSID returns the provider call identifier, empty before the start event.
func (s *Session) CallSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callSID
}

// Done is closed once the session reaches CLOSED.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

var (
	errStopRequested   = errors.New("telephony stop requested")
	errDurationCeiling = errors.New("call duration ceiling reached")
	errVoicemailHangup = errors.New("voicemail grace elapsed")
)

// Run drives the session from AWAITING_START to CLOSED. It returns once the
// session has fully torn down; every call that reaches STREAMING produces
// exactly one persisted outcome, even on error paths.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	voice, err := s.awaitStart(ctx)
	if err != nil {
		s.setState(StateError)
		s.log.CallError(s.CallSID(), "session start", err)
		s.teardown(ctx, nil)
		return
	}

	streamErr := s.stream(ctx, voice)
	switch {
	case streamErr == nil,
		errors.Is(streamErr, errStopRequested),
		errors.Is(streamErr, errDurationCeiling),
		errors.Is(streamErr, errVoicemailHangup),
		errors.Is(streamErr, context.Canceled):
		s.setState(StateEnding)
	default:
		// Transport or protocol failure: the partial transcript still
		// produces an outcome.
		s.setState(StateError)
		s.log.CallError(s.CallSID(), "session stream", streamErr)
		s.setState(StateEnding)
	}

	s.teardown(ctx, voice)
}

// awaitStart consumes telephony events until the start frame arrives, then
// resolves the call record, opens the voice-service connection and pushes the
// session configuration.
func (s *Session) awaitStart(ctx context.Context) (VoiceConn, error) {
	for {
		event, err := s.tel.ReadEvent(ctx)
		if err != nil {
			if isUnknownTelephonyEvent(err) {
				// Bookkeeping frames like "connected" precede start.
				continue
			}
			return nil, err
		}
		if event.Type != TelephonyStart {
			continue
		}

		// Bind the provider identifiers before anything below can fail:
		// teardown needs the call SID to release the table entry the
		// record lookup registers.
		s.mu.Lock()
		s.callSID = event.CallSID
		s.streamSID = event.StreamSID
		s.mu.Unlock()

		rec, err := s.lookup.RecordForCall(ctx, s.callID, event.CallSID)
		if err != nil {
			return nil, err
		}

		voice, err := s.dialVoice(ctx)
		if err != nil {
			return nil, err
		}

		err = voice.SendSessionConfig(ctx, SessionConfig{
			Instructions: s.agent.SystemPrompt(rec.Context),
			Voice:        s.settings.Voice,
			Greeting:     s.settings.Greeting,
		})
		if err != nil {
			_ = voice.Close()
			return nil, err
		}

		s.mu.Lock()
		s.rec = rec
		s.state = StateStreaming
		s.mu.Unlock()

		s.log.CallEvent(event.CallSID, "session_streaming",
			"call_id", s.callID.String(),
			"stream_sid", event.StreamSID,
		)
		return voice, nil
	}
}

// stream runs the two relay directions plus the watchdog until any of them
// ends the call. Per-direction ordering is preserved because each direction
// is a single loop.
func (s *Session) stream(ctx context.Context, voice VoiceConn) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.telephonyLoop(ctx, voice) })
	g.Go(func() error { return s.voiceLoop(ctx, voice) })
	g.Go(func() error { return s.watchdog(ctx) })

	return g.Wait()
}

func (s *Session) telephonyLoop(ctx context.Context, voice VoiceConn) error {
	for {
		event, err := s.tel.ReadEvent(ctx)
		if err != nil {
			if isUnknownTelephonyEvent(err) {
				// Mark and other bookkeeping frames mid-stream.
				continue
			}
			return err
		}

		switch event.Type {
		case TelephonyMedia:
			s.bufferAudio(event.Payload)
			if err := s.sendBounded(ctx, func(sendCtx context.Context) error {
				return voice.AppendAudio(sendCtx, event.Payload)
			}); err != nil {
				return err
			}
		case TelephonyStop:
			return errStopRequested
		case TelephonyStart:
			// Duplicate start after streaming began; ignore.
		}
	}
}

func (s *Session) voiceLoop(ctx context.Context, voice VoiceConn) error {
	for {
		event, err := voice.ReadEvent(ctx)
		if err != nil {
			return err
		}

		switch event.Type {
		case VoiceAudioDelta:
			s.bufferAudio(event.Audio)
			streamSID := s.streamSIDLocked()
			if err := s.sendBounded(ctx, func(sendCtx context.Context) error {
				return s.tel.SendMedia(sendCtx, streamSID, event.Audio)
			}); err != nil {
				return err
			}
		case VoiceTranscriptDelta:
			s.appendTranscript(event.Speaker, event.Text)
		case VoiceResponseDone:
			// Nothing to do; turn boundaries are implicit in the deltas.
		case VoiceError:
			return errors.New("voice service: " + event.Message)
		}
	}
}

// watchdog enforces the hard duration ceiling and the post-voicemail grace
// hangup. The prompt only advises the model about the ceiling; this timer is
// what actually ends the call.
func (s *Session) watchdog(ctx context.Context) error {
	ceiling := time.NewTimer(s.settings.MaxCallDuration)
	defer ceiling.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ceiling.C:
			return errDurationCeiling
		case <-s.voicemailCh:
			// Let the greeting response finish playing, then hang up.
			grace := time.NewTimer(s.settings.VoicemailGrace)
			select {
			case <-ctx.Done():
				grace.Stop()
				return ctx.Err()
			case <-ceiling.C:
				grace.Stop()
				return errDurationCeiling
			case <-grace.C:
				return errVoicemailHangup
			}
		}
	}
}

// teardown closes both connections, produces the outcome and removes the
// session from the live table. It runs even when ctx is already cancelled;
// shutdown must not abandon a call mid-flight.
func (s *Session) teardown(ctx context.Context, voice VoiceConn) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	callSID := s.callSID
	streamSID := s.streamSID
	reachedStreaming := s.rec.ID != uuid.Nil
	alreadyCompleted := s.completed
	s.completed = true
	rec := s.rec
	transcript := s.transcript
	voicemail := s.voicemail
	audio := s.audio
	s.mu.Unlock()

	if streamSID != "" {
		stopCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
		if err := s.tel.SendStop(stopCtx, streamSID); err != nil {
			s.log.CallError(callSID, "send stop frame", err)
		}
		cancel()
	}
	if voice != nil {
		_ = voice.Close()
	}
	_ = s.tel.Close()

	if reachedStreaming && !alreadyCompleted {
		var recordingKey *string
		if s.recs != nil && len(audio) > 0 {
			if key, err := s.recs.SaveRecording(ctx, callSID, audio); err != nil {
				s.log.CallError(callSID, "save recording", err)
			} else {
				recordingKey = &key
			}
		}
		s.agent.CompleteCall(ctx, rec, transcript, voicemail, recordingKey)
	}

	s.setState(StateClosed)
	s.onClose(callSID)
	s.log.CallEvent(callSID, "session_closed", "call_id", s.callID.String())
}

// appendTranscript coalesces the delta into the transcript and runs the
// voicemail check. A positive detection only flags the session; the watchdog
// decides when to hang up.
func (s *Session) appendTranscript(speaker VoiceSpeaker, text string) {
	if text == "" {
		return
	}

	who := callagent.SpeakerAssistant
	if speaker == VoiceSpeakerUser {
		who = callagent.SpeakerUser
	}

	s.mu.Lock()
	s.transcript = s.transcript.AppendDelta(who, text)
	newlyFlagged := !s.voicemail && callagent.DetectVoicemail(text)
	if newlyFlagged {
		s.voicemail = true
	}
	s.mu.Unlock()

	if newlyFlagged {
		select {
		case s.voicemailCh <- struct{}{}:
		default:
		}
		s.log.CallEvent(s.CallSID(), "voicemail_detected")
	}
}

// Transcript returns a copy of the accumulated transcript.
func (s *Session) Transcript() callagent.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(callagent.Transcript, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// VoicemailFlagged reports whether the voicemail detector fired.
func (s *Session) VoicemailFlagged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voicemail
}

func (s *Session) bufferAudio(payloadB64 string) {
	raw, err := base64.StdEncoding.DecodeString(payloadB64)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.audio = append(s.audio, raw...)
	s.mu.Unlock()
}

func (s *Session) sendBounded(ctx context.Context, send func(context.Context) error) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
	defer cancel()
	return send(sendCtx)
}

func isUnknownTelephonyEvent(err error) bool {
	var unknown ErrUnknownTelephonyEvent
	return errors.As(err, &unknown)
}

func (s *Session) streamSIDLocked() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
