// Backend is a stand-in for the upstream greeting service, for running the
// BFF locally. Greetings live in memory.
//
// Usage:
//
//	go run ./scripts/backend -port 8080
//	go run ./scripts/backend -port 8080 -drop-rate 0.5 -delay 3s
//
// -drop-rate closes that share of connections without answering, which the
// BFF treats as a transport failure and retries. -delay holds every answer
// back, to exercise the BFF's per-attempt timeout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Greeting is the upstream's resource.
type Greeting struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type store struct {
	mu        sync.Mutex
	nextID    int64
	greetings map[int64]Greeting
}

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	dropRate := flag.Float64("drop-rate", 0, "share of requests answered by closing the connection (0..1)")
	delay := flag.Duration("delay", 0, "delay before every answer")
	flag.Parse()

	s := &store{nextID: 1, greetings: map[int64]Greeting{}}
	s.add(Greeting{Name: "hello", Message: "Hello, world!"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/greetings", s.list)
	mux.HandleFunc("POST /api/greetings", s.create)
	mux.HandleFunc("GET /api/greetings/{id}", s.get)
	mux.HandleFunc("DELETE /api/greetings/{id}", s.delete)

	// health endpoint polled by the BFF
	mux.HandleFunc("GET /actuator/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	})

	handler := faults(mux, *dropRate, *delay)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting greeting backend on %s (drop-rate=%.2f delay=%v)", addr, *dropRate, *delay)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func faults(next http.Handler, dropRate float64, delay time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("request: method=%s path=%s from=%s", r.Method, r.URL.Path, r.RemoteAddr)

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if dropRate > 0 && rand.Float64() < dropRate {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *store) add(g Greeting) Greeting {
	g.ID = s.nextID
	s.nextID++
	s.greetings[g.ID] = g
	return g
}

func (s *store) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]Greeting, 0, len(s.greetings))
	for _, g := range s.greetings {
		out = append(out, g)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *store) create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}

	var g Greeting
	if err := json.Unmarshal(body, &g); err != nil || strings.TrimSpace(g.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.greetings {
		if existing.Name == g.Name {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Duplicate name"})
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.add(g))
}

func (s *store) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid id"})
		return
	}

	s.mu.Lock()
	g, ok := s.greetings[id]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Greeting not found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *store) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid id"})
		return
	}

	s.mu.Lock()
	_, ok := s.greetings[id]
	delete(s.greetings, id)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Greeting not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
