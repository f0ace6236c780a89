package server

import (
	"bufio"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// LiveReloadPath is the SSE endpoint relative to the base path.
const LiveReloadPath = "__livereload"

const heartbeatInterval = 30 * time.Second

// Hub manages SSE clients for rebuild broadcasts.
type Hub struct {
	mu       sync.Mutex
	nextID   int
	clients  map[int]*lrClient
	closed   bool
	lastHash string
}

type lrClient struct {
	ch   chan string
	done chan struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: map[int]*lrClient{}}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &lrClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	id := h.nextID
	h.nextID++
	h.clients[id] = client
	current := h.lastHash
	h.mu.Unlock()
	defer h.remove(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			slog.Debug("livereload write", logfields.Error(err))
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	hello := ": connected\n\n"
	if current != "" {
		hello += event(current)
	}
	if !send(hello) {
		return
	}

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case hash := <-client.ch:
			if !send(event(hash)) {
				return
			}
		}
	}
}

func event(hash string) string {
	return "data: {\"hash\":\"" + hash + "\"}\n\n"
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Clients is the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends hash to every client. Repeated hashes are ignored; clients
// whose buffers are full are dropped.
func (h *Hub) Broadcast(hash string) {
	h.mu.Lock()
	if h.closed || hash == "" || hash == h.lastHash {
		h.mu.Unlock()
		return
	}
	h.lastHash = hash
	ids := make([]int, 0, len(h.clients))
	var full []int
	for id, c := range h.clients {
		select {
		case c.ch <- hash:
			ids = append(ids, id)
		default:
			full = append(full, id)
		}
	}
	h.mu.Unlock()

	for _, id := range full {
		h.remove(id)
	}
	slog.Debug("livereload broadcast", "hash", hash, "clients", len(ids), "dropped", len(full))
}

// Shutdown disconnects every client and stops future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		close(c.done)
		delete(h.clients, id)
	}
}

// liveReloadScript reloads the page when the hub reports a new hash. The
// first event only records the baseline.
func liveReloadScript(endpoint string) string {
	return `<script>(() => {
  if (window.__DOCSITE_LR__) return;
  window.__DOCSITE_LR__ = true;
  function connect() {
    const es = new EventSource('` + endpoint + `');
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (current === null) { current = p.hash; return; }
        if (p.hash && p.hash !== current) { location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();</script>`
}

// injectLiveReload inserts the client script before </body> of HTML
// responses. Bodies above maxInjectSize are passed through untouched.
func injectLiveReload(endpoint string) func(http.Handler) http.Handler {
	script := liveReloadScript(endpoint)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if !(strings.HasSuffix(p, "/") || strings.HasSuffix(p, ".html")) {
				next.ServeHTTP(w, r)
				return
			}
			inj := &injector{ResponseWriter: w, status: http.StatusOK, script: script}
			next.ServeHTTP(inj, r)
			inj.finalize()
		})
	}
}

const maxInjectSize = 512 * 1024

type injector struct {
	http.ResponseWriter
	status      int
	script      string
	buf         []byte
	passthrough bool
	wroteHeader bool
}

func (i *injector) WriteHeader(code int) {
	i.status = code
	if i.passthrough && !i.wroteHeader {
		i.ResponseWriter.WriteHeader(code)
		i.wroteHeader = true
	}
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.passthrough && i.buf == nil {
		ct := i.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			i.startPassthrough()
		} else {
			i.buf = make([]byte, 0, len(data))
		}
	}
	if !i.passthrough && len(i.buf)+len(data) > maxInjectSize {
		i.startPassthrough()
		if len(i.buf) > 0 {
			if _, err := i.ResponseWriter.Write(i.buf); err != nil {
				return 0, err
			}
			i.buf = nil
		}
	}
	if i.passthrough {
		return i.ResponseWriter.Write(data)
	}
	i.buf = append(i.buf, data...)
	return len(data), nil
}

func (i *injector) startPassthrough() {
	i.passthrough = true
	i.Header().Del("Content-Length")
	i.ResponseWriter.WriteHeader(i.status)
	i.wroteHeader = true
}

func (i *injector) finalize() {
	if i.passthrough {
		return
	}
	body := string(i.buf)
	if i.status == http.StatusOK && strings.Contains(body, "</body>") {
		body = strings.Replace(body, "</body>", i.script+"</body>", 1)
	}
	i.Header().Del("Content-Length")
	i.ResponseWriter.WriteHeader(i.status)
	if body != "" {
		_, _ = i.ResponseWriter.Write([]byte(body))
	}
}
