// internal/web/handlers.go
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"wakeward/internal/database"
	"wakeward/internal/power"
	"wakeward/internal/wake"
)

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   Version,
	})
}

func (s *Server) getHosts(c *gin.Context) {
	filters := database.HostFilters{}
	if enabledStr := c.Query("enabled"); enabledStr != "" {
		enabled := enabledStr == "true"
		filters.Enabled = &enabled
	}

	hosts, err := s.store.GetHosts(c.Request.Context(), filters)
	if err != nil {
		logrus.WithError(err).Error("Failed to get hosts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get hosts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  hosts,
		"count": len(hosts),
	})
}

func (s *Server) getHost(c *gin.Context) {
	id := c.Param("id")

	host, err := s.store.GetHost(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Host not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": host})
}

type powerStateView struct {
	power.PowerState
	WakePhase     wake.Phase `json:"wake_phase"`
	WakeCandidate bool       `json:"wake_candidate"`
}

func (s *Server) getPowerStates(c *gin.Context) {
	states := s.classifier.States()

	views := make([]powerStateView, 0, len(states))
	for _, state := range states {
		views = append(views, powerStateView{
			PowerState:    state,
			WakePhase:     s.watcher.Phase(state.HostID),
			WakeCandidate: s.classifier.WakeCandidate(state.HostID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  views,
		"count": len(views),
	})
}

func (s *Server) getPowerState(c *gin.Context) {
	id := c.Param("id")

	state, exists := s.classifier.State(id)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "No power state for host"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": powerStateView{
		PowerState:    state,
		WakePhase:     s.watcher.Phase(id),
		WakeCandidate: s.classifier.WakeCandidate(id),
	}})
}

func (s *Server) triggerWake(c *gin.Context) {
	id := c.Param("id")

	host, err := s.store.GetHost(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Host not found"})
		return
	}

	reason := c.Query("reason")
	if reason == "" {
		reason = "api request"
	}

	accepted := s.watcher.Trigger(wake.Event{
		HostID: host.ID,
		Reason: reason,
	})
	if !accepted {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Wake queue full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{
			"host":   host.Name,
			"reason": reason,
		},
	})
}

func (s *Server) getWakeLog(c *gin.Context) {
	hostID := c.Query("host")

	var since time.Time
	if sinceStr := c.Query("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = parsed
	}

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := s.wakeLog.Recent(c.Request.Context(), hostID, since, limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to query wake log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query wake log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  entries,
		"count": len(entries),
	})
}

func (s *Server) getGateway(c *gin.Context) {
	gateway, err := s.prober.DefaultGateway()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"gateway": gateway}})
}

func (s *Server) getStats(c *gin.Context) {
	stats := map[string]int{
		"online":  0,
		"offline": 0,
		"unknown": 0,
	}

	for _, state := range s.classifier.States() {
		stats[string(state.Verdict)]++
	}

	dbStats, err := s.store.GetDatabaseStats(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to get database stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"verdicts": stats,
		"database": dbStats,
	}})
}
