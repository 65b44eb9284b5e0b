package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

type prediction struct {
	Label          string             `json:"label"`
	Score          float64            `json:"score"`
	Scores         map[string]float64 `json:"scores"`
	ProcessingTime float64            `json:"processing_time"`
	Text           string             `json:"text"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"status":       "healthy",
			"model_loaded": true,
			"service":      "sentiment-mock",
		})
	})

	mux.HandleFunc("/api/predict", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, classify(req.Text))
	})

	mux.HandleFunc("/api/predict/batch", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req struct {
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		results := make([]prediction, len(req.Texts))
		for i, text := range req.Texts {
			results[i] = classify(text)
		}
		writeJSON(w, map[string]any{"results": results})
	})

	mux.HandleFunc("/api/model/info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"name":          "mock-sentiment",
			"framework":     "none",
			"device":        "cpu",
			"quantized":     false,
			"parameters":    0,
			"model_size_mb": 0.1,
		})
	})

	logger := log.New(log.Writer(), "sentiment-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8000",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8000")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// classify is a keyword toy, just enough to exercise the client.
func classify(text string) prediction {
	lower := strings.ToLower(text)
	positive := 0.5
	switch {
	case strings.Contains(lower, "love"), strings.Contains(lower, "great"),
		strings.Contains(lower, "good"):
		positive = 0.93
	case strings.Contains(lower, "hate"), strings.Contains(lower, "terrible"),
		strings.Contains(lower, "bad"):
		positive = 0.06
	}
	label := "POSITIVE"
	score := positive
	if positive < 0.5 {
		label = "NEGATIVE"
		score = 1 - positive
	}
	return prediction{
		Label:          label,
		Score:          score,
		Scores:         map[string]float64{"positive": positive, "negative": 1 - positive},
		ProcessingTime: 0.004,
		Text:           text,
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
