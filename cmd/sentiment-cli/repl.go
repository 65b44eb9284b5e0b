package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/T10nnyy/sentiment-AI/internal/gateway"
	"github.com/T10nnyy/sentiment-AI/internal/history"
	"github.com/T10nnyy/sentiment-AI/internal/live"
	"github.com/T10nnyy/sentiment-AI/internal/models"
	"github.com/T10nnyy/sentiment-AI/internal/settings"
	"github.com/T10nnyy/sentiment-AI/internal/stats"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

const helpText = `Type text and press enter to analyze it.
Commands:
  :type <text>        simulate live typing (debounced, not recorded)
  :batch a || b || c  analyze several texts in one call
  :file <path>        analyze a text file line by line
  :mode [rest|graphql] show or switch the transport
  :live [on|off]      show or toggle live typing
  :history [query]    list recorded predictions
  :remove <id>        delete one history entry
  :clear              delete all history entries
  :stats              show latency statistics
  :info               show remote model metadata
  :health             check service health
  :quit               exit`

// repl drives the interactive session. Explicit submissions go through
// the gateway and are recorded; live input only updates the live slot.
type repl struct {
	logger      *slog.Logger
	gateway     *gateway.Gateway
	history     *history.Store
	stats       *stats.Aggregator
	settings    *settings.Store
	coordinator *live.Coordinator
}

func (r *repl) run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Println("sentiment client ready (:help for commands)")
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !r.dispatch(ctx, line) {
				return
			}
		}
	}
}

// dispatch handles one input line; it returns false to end the session.
func (r *repl) dispatch(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ":") {
		r.predict(ctx, line)
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":quit", ":exit", ":q":
		return false
	case ":help":
		fmt.Println(helpText)
	case ":type":
		r.coordinator.OnTextChanged(arg)
	case ":batch":
		r.predictBatch(ctx, arg)
	case ":file":
		r.analyzeFile(ctx, arg)
	case ":mode":
		r.mode(ctx, arg)
	case ":live":
		r.liveToggle(ctx, arg)
	case ":history":
		r.listHistory(arg)
	case ":remove":
		r.history.Remove(ctx, arg)
		fmt.Println("removed")
	case ":clear":
		r.history.Clear(ctx)
		fmt.Println("history cleared")
	case ":stats":
		r.printStats()
	case ":info":
		r.modelInfo(ctx)
	case ":health":
		r.health(ctx)
	default:
		fmt.Printf("unknown command %s (:help for commands)\n", cmd)
	}
	return true
}

func (r *repl) predict(ctx context.Context, text string) {
	start := time.Now()
	result, err := r.gateway.Predict(ctx, text)
	if err != nil {
		fmt.Printf("error: %s\n", utils.MessageOf(err))
		return
	}
	r.stats.Record(time.Since(start))
	entry := r.history.Record(ctx, text, result)
	printResult(result)
	fmt.Printf("  recorded as %s\n", entry.ID)
}

func (r *repl) predictBatch(ctx context.Context, arg string) {
	var texts []string
	for _, part := range strings.Split(arg, "||") {
		if part = strings.TrimSpace(part); part != "" {
			texts = append(texts, part)
		}
	}
	start := time.Now()
	results, err := r.gateway.PredictBatch(ctx, texts)
	if err != nil {
		fmt.Printf("error: %s\n", utils.MessageOf(err))
		return
	}
	r.stats.Record(time.Since(start))
	for i, result := range results {
		r.history.Record(ctx, texts[i], result)
		printResult(result)
	}
}

func (r *repl) analyzeFile(ctx context.Context, path string) {
	if path == "" {
		fmt.Println("usage: :file <path>")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer f.Close()

	results, err := r.gateway.AnalyzeFile(ctx, f.Name(), f)
	if err != nil {
		fmt.Printf("error: %s\n", utils.MessageOf(err))
		return
	}
	for _, result := range results {
		printResult(result)
	}
}

func (r *repl) mode(ctx context.Context, arg string) {
	if arg == "" {
		fmt.Printf("transport: %s\n", r.gateway.Mode())
		return
	}
	mode, err := gateway.ParseMode(arg)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	r.settings.SetMode(ctx, mode)
	fmt.Printf("transport: %s\n", mode)
}

func (r *repl) liveToggle(ctx context.Context, arg string) {
	switch arg {
	case "":
		state := "off"
		if r.settings.Get().LiveTyping {
			state = "on"
		}
		fmt.Printf("live typing: %s\n", state)
	case "on":
		r.settings.SetLiveTyping(ctx, true)
		fmt.Println("live typing: on")
	case "off":
		r.settings.SetLiveTyping(ctx, false)
		fmt.Println("live typing: off")
	default:
		fmt.Println("usage: :live [on|off]")
	}
}

func (r *repl) listHistory(query string) {
	entries := r.history.List(history.Filter{Query: query})
	if len(entries) == 0 {
		fmt.Println("history is empty")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s (%.1f%%)  %q\n",
			e.Timestamp.Format(time.RFC3339), e.ID, e.Result.Label, e.Result.Score*100, e.Text)
	}
}

func (r *repl) printStats() {
	snap := r.stats.Snapshot()
	fmt.Printf("predictions: %d\n", snap.TotalPredictions)
	if snap.WindowSize == 0 {
		fmt.Println("no latency samples yet")
		return
	}
	fmt.Printf("average latency: %s over last %d requests\n",
		snap.AverageLatency.Round(time.Millisecond), snap.WindowSize)
}

func (r *repl) modelInfo(ctx context.Context) {
	info, err := r.gateway.ModelInfo(ctx)
	if err != nil {
		fmt.Printf("error: %s\n", utils.MessageOf(err))
		return
	}
	fmt.Printf("model: %s\nframework: %s\ndevice: %s\nquantized: %v\n",
		info.Name, info.Framework, info.Device, info.Quantized)
	if info.Parameters > 0 {
		fmt.Printf("parameters: %d\n", info.Parameters)
	}
	if info.ModelSizeMB > 0 {
		fmt.Printf("size: %.1f MB\n", info.ModelSizeMB)
	}
}

func (r *repl) health(ctx context.Context) {
	status, err := r.gateway.Health(ctx)
	if err != nil {
		fmt.Printf("service unreachable: %s\n", utils.MessageOf(err))
		return
	}
	if status.Healthy() {
		fmt.Printf("service healthy (model loaded: %v)\n", status.ModelLoaded)
	} else {
		fmt.Printf("service degraded: %s\n", status.Status)
	}
}

func printResult(result models.PredictionResult) {
	fmt.Printf("%s (%.1f%%)", result.Label, result.Score*100)
	if len(result.PerLabelScores) > 0 {
		parts := make([]string, 0, len(result.PerLabelScores))
		for label, score := range result.PerLabelScores {
			parts = append(parts, fmt.Sprintf("%s=%.3f", label, score))
		}
		fmt.Printf("  [%s]", strings.Join(parts, " "))
	}
	fmt.Println()
}
