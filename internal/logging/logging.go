package logging

import (
	"log"
	"net/http"
	"time"
)

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController (and WebSocket upgrades) reach the
// underlying writer
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// AccessLogHandler logs each request with its status and duration after
// calling another http.Handler
func AccessLogHandler(l *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		l.Printf("\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.RemoteAddr,
			r.Method,
			r.Host,
			r.RequestURI,
			rec.status,
			time.Since(start).Round(time.Millisecond),
			playerCookie(r),
		)
	})
}

// LogWebSocket is called from within a WebSocket handler, once per
// relayed message or connection event
func LogWebSocket(l *log.Logger, r *http.Request, event string, detail any) {
	l.Printf("\t%s\t%s\t%s\t%s\t%s\t%v\n",
		r.RemoteAddr,
		"WebSocket",
		r.RequestURI,
		playerCookie(r),
		event,
		detail,
	)
}

// playerCookie identifies the player without logging their id
func playerCookie(r *http.Request) string {
	name, room := "-", "-"
	if c, err := r.Cookie("player-name"); err == nil {
		name = c.Value
	}
	if c, err := r.Cookie("room-code"); err == nil {
		room = c.Value
	}
	return room + "/" + name
}
