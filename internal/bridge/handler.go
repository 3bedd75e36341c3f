package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fixline_backend/internal/adapters/storage"
	"fixline_backend/internal/callagent"
	"fixline_backend/platform/config"
	"fixline_backend/platform/logger"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecordLookupFunc adapts a closure to RecordLookup.
type RecordLookupFunc func(ctx context.Context, callID uuid.UUID, callSID string) (callagent.CallRecord, error)

func (f RecordLookupFunc) RecordForCall(ctx context.Context, callID uuid.UUID, callSID string) (callagent.CallRecord, error) {
	return f(ctx, callID, callSID)
}

// RecordingAccess is the full recording surface: sessions save audio and the
// download endpoint presigns fetch URLs. A nil value disables recording.
type RecordingAccess interface {
	RecordingStore
	RecordingDownloadURL(ctx context.Context, fileKey string) (*storage.PresignedURL, error)
}

// Handler serves the telephony-facing endpoints: the call-setup document and
// the media-stream websocket.
type Handler struct {
	agent     *callagent.Agent
	repo      *callagent.Repository
	table     *SessionTable
	recs      RecordingAccess
	telephony config.TelephonyConfig
	voice     config.VoiceServiceConfig
	settings  SessionSettings
	log       *logger.Logger

	// shutdownCtx is cancelled when the bridge begins draining; live
	// sessions observe it and run their teardown path.
	shutdownCtx context.Context
}

// CallSetupDocument renders the call-setup document for a call: it mints the
// stream token and points the provider's media stream back at this process.
func (h *Handler) CallSetupDocument(callID uuid.UUID) (string, error) {
	token, err := MintStreamToken(callID, h.telephony.GetStreamTokenSecret(), h.telephony.GetStreamTokenTTL())
	if err != nil {
		return "", fmt.Errorf("mint stream token: %w", err)
	}

	streamURL := mediaStreamURL(h.telephony.GetPublicBaseURL(), token)
	return BuildCallSetupDocument(h.telephony.GetCallGreeting(), streamURL)
}

// HandleCallSetup returns the document the telephony provider fetches when a
// call is answered.
func (h *Handler) HandleCallSetup(c *gin.Context) {
	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid call id")
		return
	}

	if _, err := h.repo.GetByID(c.Request.Context(), callID); err != nil {
		c.String(http.StatusNotFound, "unknown call")
		return
	}

	doc, err := h.CallSetupDocument(callID)
	if err != nil {
		h.log.Error("build call-setup document", "error", err, "call_id", callID)
		c.String(http.StatusInternalServerError, "document error")
		return
	}

	c.Header("Content-Type", "text/xml; charset=utf-8")
	c.String(http.StatusOK, doc)
}

// HandleRecordingDownload returns a short-lived presigned URL for a completed
// call's recording.
func (h *Handler) HandleRecordingDownload(c *gin.Context) {
	if h.recs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording storage is disabled"})
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
		return
	}

	rec, err := h.repo.GetByID(c.Request.Context(), callID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown call"})
		return
	}
	if rec.RecordingKey == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "call has no recording"})
		return
	}

	url, err := h.recs.RecordingDownloadURL(c.Request.Context(), *rec.RecordingKey)
	if err != nil {
		h.log.Error("presign recording download", "error", err, "call_id", callID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	c.JSON(http.StatusOK, url)
}

// HandleMediaStream accepts the provider's media-stream websocket and runs
// the call session on it. The handler blocks for the session's lifetime.
func (h *Handler) HandleMediaStream(c *gin.Context) {
	callID, err := ParseStreamToken(c.Query("token"), h.telephony.GetStreamTokenSecret())
	if err != nil {
		c.String(http.StatusUnauthorized, "invalid stream token")
		return
	}

	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// The telephony provider does not send a browser Origin.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Error("accept media stream", "error", err, "call_id", callID)
		return
	}
	ws.SetReadLimit(1 << 20)

	var session *Session
	lookup := RecordLookupFunc(func(ctx context.Context, callID uuid.UUID, callSID string) (callagent.CallRecord, error) {
		rec, err := h.repo.GetByID(ctx, callID)
		if err != nil {
			return callagent.CallRecord{}, err
		}
		if err := h.repo.AttachCallSID(ctx, callID, callSID); err != nil {
			h.log.CallError(callSID, "attach call sid", err)
		}
		rec.CallSID = &callSID
		if !h.table.Put(callSID, session) {
			return callagent.CallRecord{}, errors.New("call sid already has a live session")
		}
		return rec, nil
	})

	dial := func(ctx context.Context) (VoiceConn, error) {
		return DialVoiceService(ctx, h.voice)
	}

	session = NewSession(callID, NewTelephonyConn(ws), dial, h.agent, lookup, h.recs, h.settings, h.log, func(callSID string) {
		h.table.Release(callSID, session)
	})

	// The session must also end when the bridge drains, not only when the
	// request context dies.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		select {
		case <-h.shutdownCtx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	session.Run(ctx)
}

func mediaStreamURL(publicBaseURL, token string) string {
	base := strings.TrimRight(publicBaseURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/api/v1/media-stream?token=" + token
}
