package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/weed_mapper/internal/config"
	"github.com/relabs-tech/weed_mapper/internal/gps"
	"github.com/relabs-tech/weed_mapper/internal/ledger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the map page is served from the robot itself
	},
}

// Weeds queued for one websocket client before new ones are dropped.
const wsBuffer = 64

// WebState is what the web server knows: the last fix seen on MQTT and
// every weed mark seen so far.
type WebState struct {
	mu      sync.RWMutex
	fix     gps.Fix
	haveFix bool
	weeds   []ledger.WeedEntry
	subs    map[chan ledger.WeedEntry]struct{}
	logger  *zap.SugaredLogger
}

func NewWebState(logger *zap.SugaredLogger) *WebState {
	return &WebState{
		weeds:  []ledger.WeedEntry{},
		subs:   map[chan ledger.WeedEntry]struct{}{},
		logger: logger,
	}
}

func (s *WebState) SetFix(f gps.Fix) {
	s.mu.Lock()
	s.fix = f
	s.haveFix = true
	s.mu.Unlock()
}

func (s *WebState) Fix() (gps.Fix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fix, s.haveFix
}

// AddWeed appends a mark and fans it out to websocket clients. A client
// that is too far behind misses the mark rather than stalling MQTT.
func (s *WebState) AddWeed(e ledger.WeedEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.weeds = append(s.weeds, e)
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
			s.logger.Warn("websocket client too slow, weed dropped")
		}
	}
}

func (s *WebState) Weeds() []ledger.WeedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.WeedEntry, len(s.weeds))
	copy(out, s.weeds)
	return out
}

// subscribe returns the marks so far and a channel for every later one,
// with nothing lost or repeated between the two.
func (s *WebState) subscribe() ([]ledger.WeedEntry, chan ledger.WeedEntry, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backlog := make([]ledger.WeedEntry, len(s.weeds))
	copy(backlog, s.weeds)
	ch := make(chan ledger.WeedEntry, wsBuffer)
	s.subs[ch] = struct{}{}

	return backlog, ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// NewWebHandler serves the JSON API, the live weed feed and, when
// staticDir is set, the map page.
func NewWebHandler(state *WebState, staticDir string, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()

	// latest position
	mux.HandleFunc("/api/fix", func(w http.ResponseWriter, r *http.Request) {
		fix, ok := state.Fix()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, fix, logger)
	})

	mux.HandleFunc("/api/weeds", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, state.Weeds(), logger)
	})

	mux.HandleFunc("/ws/weeds", func(w http.ResponseWriter, r *http.Request) {
		serveWeedFeed(state, w, r, logger)
	})

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v any, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("json encode error: %v", err)
	}
}

// serveWeedFeed sends every mark seen so far, then each new one as it
// arrives, one JSON object per message.
func serveWeedFeed(state *WebState, w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger) {
	backlog, ch, cancel := state.subscribe()
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// The client never sends anything; reading only notices it leaving.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Debugf("websocket closed: %v", err)
				}
				return
			}
		}
	}()

	for _, e := range backlog {
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case e := <-ch:
			if err := conn.WriteJSON(e); err != nil {
				logger.Debugf("websocket write error: %v", err)
				return
			}
		}
	}
}

// RunWeb subscribes to the fix and weed topics and serves them over HTTP.
// A weed map left by an earlier session is shown until new marks arrive.
func RunWeb(cfg *config.Config, logger *zap.SugaredLogger) error {
	state := NewWebState(logger)

	saved, err := ledger.Load(cfg.WeedMapPath)
	switch {
	case err == nil:
		for _, e := range saved {
			state.AddWeed(e)
		}
		logger.Infof("loaded %d weed location(s) from %s", len(saved), cfg.WeedMapPath)
	case errors.Is(err, os.ErrNotExist):
	default:
		logger.Warnf("ignoring saved weed map: %v", err)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeJSON(client, cfg.TopicGPS, logger, state.SetFix); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicWeeds, logger, state.AddWeed); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	logger.Infof("web server listening on %s", addr)
	return http.ListenAndServe(addr, NewWebHandler(state, "web", logger))
}
