// Package web serves the latest minimap frame to a browser.
package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"image/png"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/b1naryth1ef/minimap"
)

type StatsSource interface {
	Stats() minimap.Stats
}

type statsResponse struct {
	minimap.Stats
	Seq   uint64 `json:"seq"`
	Scale int    `json:"scale"`
}

type Server struct {
	publisher *minimap.Publisher
	stats     StatsSource
	data      FrontendData
	index     *template.Template
	logger    *log.Entry
}

func NewServer(publisher *minimap.Publisher, stats StatsSource, data FrontendData) *Server {
	return &Server{
		publisher: publisher,
		stats:     stats,
		data:      data,
		index:     template.Must(template.New("index.html").Parse(GetIndexHTML())),
		logger:    log.WithField("component", "web"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/frame.png", s.handleFrame)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	dataSerialized, err := json.Marshal(s.data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, string(dataSerialized)); err != nil {
		s.logger.Errorf("failed to render index: %v", err)
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame := s.publisher.Latest()
	if frame == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame.Image()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(frame.Seq, 10))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse
	if s.stats != nil {
		resp.Stats = s.stats.Stats()
	}
	if frame := s.publisher.Latest(); frame != nil {
		resp.Seq = frame.Seq
		resp.Scale = frame.Scale
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Errorf("failed to encode stats: %v", err)
	}
}
