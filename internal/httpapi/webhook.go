package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monadical-sas/reflector/internal/workflow/diarization"
)

// handleRecordingReady is the webhook a recording service calls once a
// meeting's raw tracks are durably written to the blob store. The
// duplicate-start race itself is handled inside diarization.Start, not
// here.
func (s *Server) handleRecordingReady(c *gin.Context) {
	var in diarization.StartInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.TranscriptID == "" || in.RecordingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transcript_id and recording_id are required"})
		return
	}

	runID, started, err := diarization.Start(c.Request.Context(), s.Engine, s.Diarization, in)
	if err != nil {
		s.Log.Error("recording-ready webhook failed", "transcript_id", in.TranscriptID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start workflow"})
		return
	}
	if !started {
		c.JSON(http.StatusOK, gin.H{"started": false, "reason": "workflow already running for this transcript"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"started": true, "run_id": runID})
}
