package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"verify-backend/internal/health"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitoringServer runs on its own port and feeds the ops dashboard:
// current stats over REST, alerts pushed over websocket.
type MonitoringServer struct {
	db         *pgxpool.Pool
	checker    *health.HealthChecker
	port       int
	alerts     []Alert
	alertsMux  sync.RWMutex
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Alert
}

type Alert struct {
	ID        int       `json:"id"`
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

type DashboardStats struct {
	DatabaseStatus    string             `json:"database_status"`
	ActiveConnections int                `json:"active_connections"`
	ResponseTime      int64              `json:"response_time_ms"`
	DBSize            string             `json:"db_size"`
	Uptime            string             `json:"uptime"`
	ActiveAlerts      int                `json:"active_alerts"`
	System            health.SystemStats `json:"system"`
	Verification      VerificationStats  `json:"verification"`
}

// VerificationStats summarizes the last hour of challenge traffic
type VerificationStats struct {
	CodesRequested int     `json:"codes_requested"`
	CodesVerified  int     `json:"codes_verified"`
	SuccessRate    float64 `json:"success_rate"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewMonitoringServer(db *pgxpool.Pool, checker *health.HealthChecker, port int) *MonitoringServer {
	return &MonitoringServer{
		db:        db,
		checker:   checker,
		port:      port,
		alerts:    make([]Alert, 0),
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Alert),
	}
}

func (ms *MonitoringServer) Start() {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", ms.getStats).Methods("GET")
	r.HandleFunc("/api/alerts", ms.getAlerts).Methods("GET")
	r.HandleFunc("/api/test-alert", ms.createTestAlert).Methods("POST")

	// WebSocket for real-time alert pushes
	r.HandleFunc("/ws", ms.handleWebSocket)

	go ms.handleBroadcast()
	go ms.monitorHealth()

	addr := fmt.Sprintf(":%d", ms.port)
	log.Printf("[Monitoring] Dashboard API running on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func (ms *MonitoringServer) getStats(w http.ResponseWriter, r *http.Request) {
	stats := ms.collectStats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (ms *MonitoringServer) collectStats() DashboardStats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	detailed := ms.checker.CheckDetailed()

	var activeConns int
	ms.db.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&activeConns)

	var dbSizeBytes int64
	ms.db.QueryRow(ctx, "SELECT pg_database_size(current_database())").Scan(&dbSizeBytes)
	dbSize := fmt.Sprintf("%.2f GB", float64(dbSizeBytes)/(1024*1024*1024))

	var uptimeSec int
	ms.db.QueryRow(ctx, "SELECT EXTRACT(EPOCH FROM (NOW() - pg_postmaster_start_time()))::int").Scan(&uptimeSec)

	verification := ms.collectVerificationStats(ctx)

	ms.alertsMux.RLock()
	activeAlertCount := 0
	for _, alert := range ms.alerts {
		if !alert.Resolved {
			activeAlertCount++
		}
	}
	ms.alertsMux.RUnlock()

	return DashboardStats{
		DatabaseStatus:    detailed.Database.Status,
		ActiveConnections: activeConns,
		ResponseTime:      detailed.Database.ResponseTime,
		DBSize:            dbSize,
		Uptime:            formatUptime(uptimeSec),
		ActiveAlerts:      activeAlertCount,
		System:            detailed.System,
		Verification:      verification,
	}
}

func (ms *MonitoringServer) collectVerificationStats(ctx context.Context) VerificationStats {
	var stats VerificationStats
	ms.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE verified)
		FROM otp_challenges
		WHERE created_at > NOW() - INTERVAL '1 hour'
	`).Scan(&stats.CodesRequested, &stats.CodesVerified)

	if stats.CodesRequested > 0 {
		stats.SuccessRate = float64(stats.CodesVerified) / float64(stats.CodesRequested) * 100
	}
	return stats
}

func formatUptime(seconds int) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func (ms *MonitoringServer) getAlerts(w http.ResponseWriter, r *http.Request) {
	ms.alertsMux.RLock()
	defer ms.alertsMux.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ms.alerts)
}

func (ms *MonitoringServer) createTestAlert(w http.ResponseWriter, r *http.Request) {
	var alert Alert
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ms.raiseAlert(&alert)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(alert)
}

func (ms *MonitoringServer) raiseAlert(alert *Alert) {
	ms.alertsMux.Lock()
	alert.ID = len(ms.alerts) + 1
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	ms.alerts = append(ms.alerts, *alert)
	ms.alertsMux.Unlock()

	ms.broadcast <- *alert
}

func (ms *MonitoringServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	ms.clientsMux.Lock()
	ms.clients[conn] = true
	ms.clientsMux.Unlock()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			ms.clientsMux.Lock()
			delete(ms.clients, conn)
			ms.clientsMux.Unlock()
			break
		}
	}
}

func (ms *MonitoringServer) handleBroadcast() {
	for alert := range ms.broadcast {
		ms.clientsMux.Lock()
		for client := range ms.clients {
			err := client.WriteJSON(alert)
			if err != nil {
				client.Close()
				delete(ms.clients, client)
			}
		}
		ms.clientsMux.Unlock()
	}
}

func (ms *MonitoringServer) monitorHealth() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := ms.collectStats()

		if stats.DatabaseStatus != "healthy" {
			ms.raiseAlert(&Alert{
				Severity: "critical",
				Type:     "database_down",
				Message:  "Database is unreachable",
			})
		}

		if stats.ResponseTime > 1000 {
			ms.raiseAlert(&Alert{
				Severity: "warning",
				Type:     "high_latency",
				Message:  fmt.Sprintf("Database response time: %dms", stats.ResponseTime),
			})
		}

		// A sudden drop in verification success usually means mail delivery
		// trouble or an active guessing campaign
		if stats.Verification.CodesRequested >= 20 && stats.Verification.SuccessRate < 30 {
			ms.raiseAlert(&Alert{
				Severity: "warning",
				Type:     "low_verification_rate",
				Message: fmt.Sprintf("Only %.0f%% of %d codes verified in the last hour",
					stats.Verification.SuccessRate, stats.Verification.CodesRequested),
			})
		}
	}
}
