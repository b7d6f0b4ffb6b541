package server

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/klppl/onepagepub/internal/apierr"
	"github.com/rivo/uniseg"
)

// previewGraphemes bounds the recent-payload preview shown by
// /ops/deliveries to a grapheme-cluster-safe length, so a multi-byte emoji
// or combining sequence at the cut point is never split mid-cluster.
const previewGraphemes = 160

func preview(s string) string {
	g := uniseg.NewGraphemes(s)
	var out []rune
	for len(out) < previewGraphemes && g.Next() {
		out = append(out, g.Runes()...)
	}
	if g.Next() {
		return string(out) + "…"
	}
	return string(out)
}

// handleOpsStatus reports instance health: uptime, object/actor counts,
// queue depth, storage driver. Read-only.
func (s *Server) handleOpsStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeErr(w, err)
		return
	}
	uptime := time.Since(s.startedAt)
	activityJSON(w, map[string]interface{}{
		"uptime":          humanize.RelTime(s.startedAt, time.Now(), "ago", ""),
		"uptimeSeconds":   int(uptime.Seconds()),
		"totalObjects":    humanize.Comma(int64(stats.TotalObjects)),
		"totalActors":     humanize.Comma(int64(stats.TotalActors)),
		"queueDepth":      stats.QueueDepth,
		"deadLetters":     stats.DeadLetters,
		"storageDriver":   s.store.Driver(),
		"deliveryWorkers": s.cfg.DeliveryWorkers,
	})
}

// handleOpsDeliveries lists recent delivery attempts, newest first.
func (s *Server) handleOpsDeliveries(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.RecentDeliveries(100)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, map[string]interface{}{
			"id":          j.ID,
			"activityId":  j.ActivityID,
			"targetInbox": j.TargetInbox,
			"attempts":    j.Attempts,
			"status":      j.Status,
			"lastError":   j.LastError,
			"nextAttempt": j.NextAttemptAt,
			"payload":     preview(j.Payload),
		})
	}
	activityJSON(w, map[string]interface{}{"deliveries": out})
}

// handleOpsRequeue immediately makes a retired delivery job eligible for
// another attempt.
func (s *Server) handleOpsRequeue(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := s.store.Requeue(jobID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOpsFeed upgrades the connection to a raw websocket and streams
// live structured log lines, replaying recent history first.
func (s *Server) handleOpsFeed(w http.ResponseWriter, r *http.Request) {
	if s.logBroadcaster == nil {
		writeErr(w, apierr.New(apierr.NotFound, "log feed not configured"))
		return
	}

	conn, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return // ws.UpgradeHTTP has already written the error response
	}
	defer conn.Close()

	history, ch, cancel := s.logBroadcaster.Subscribe()
	defer cancel()

	for _, line := range history {
		if err := wsutil.WriteServerText(conn, []byte(line)); err != nil {
			return
		}
	}
	for line := range ch {
		if err := wsutil.WriteServerText(conn, []byte(line)); err != nil {
			return
		}
	}
}
