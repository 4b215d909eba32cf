package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	server := flag.String("server", "http://localhost:8080", "cognitive core server URL")
	source := flag.String("source", "cli-user", "event source")
	eventType := flag.String("type", "speech-in", "event type for plain input")
	flag.Parse()

	fmt.Println("Cognitive core CLI")
	fmt.Printf("Server: %s | Source: %s\n", *server, *source)
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /wake, /sleep, /status, /events, /plugins")
	fmt.Println("---")

	fetchStatus(*server)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		case "/wake":
			lifecycle(*server, "/api/wake")
		case "/sleep":
			fmt.Println("Winding down...")
			lifecycle(*server, "/api/sleep")
		case "/status":
			fetchStatus(*server)
		case "/events":
			fetchEvents(*server)
		case "/plugins":
			fetchPlugins(*server)
		default:
			sendEvent(*server, *eventType, input, *source)
		}
	}
}

func lifecycle(server, path string) {
	resp, err := client.Post(server+path, "application/json", nil)
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		printError("Failed to parse response: %v", err)
		return
	}
	fmt.Printf("State: \033[36m%s\033[0m\n", body.Status)
}

func fetchStatus(server string) {
	resp, err := client.Get(server + "/api/status")
	if err != nil {
		printError("Failed to fetch status: %v", err)
		return
	}
	defer resp.Body.Close()

	var s struct {
		Status             string  `json:"status"`
		CurrentSituation   string  `json:"current_situation"`
		CognitiveLoad      float64 `json:"cognitive_load"`
		WorkingMemoryCount int     `json:"working_memory_count"`
		EpisodicCacheCount int     `json:"episodic_cache_count"`
		ActiveGoals        int     `json:"active_goals"`
		ProcessingStats    struct {
			EventsProcessed       int64         `json:"events_processed"`
			EventsDropped         int64         `json:"events_dropped"`
			MemoryConsolidations  int64         `json:"memory_consolidations"`
			AverageProcessingTime time.Duration `json:"average_processing_time"`
		} `json:"processing_stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		printError("Failed to parse status: %v", err)
		return
	}
	fmt.Printf("State:      %s\n", s.Status)
	if s.CurrentSituation != "" {
		fmt.Printf("Situation:  %s\n", s.CurrentSituation)
	}
	fmt.Printf("Load:       %.2f\n", s.CognitiveLoad)
	fmt.Printf("Working:    %d events, %d goals\n", s.WorkingMemoryCount, s.ActiveGoals)
	fmt.Printf("Cache:      %d memories\n", s.EpisodicCacheCount)
	fmt.Printf("Processed:  %d (dropped %d, avg %s)\n",
		s.ProcessingStats.EventsProcessed, s.ProcessingStats.EventsDropped, s.ProcessingStats.AverageProcessingTime.Round(time.Millisecond))
	fmt.Printf("Dreams:     %d\n", s.ProcessingStats.MemoryConsolidations)
}

func fetchEvents(server string) {
	resp, err := client.Get(server + "/api/events")
	if err != nil {
		printError("Failed to fetch events: %v", err)
		return
	}
	defer resp.Body.Close()

	var events []struct {
		Timestamp  time.Time `json:"timestamp"`
		Source     string    `json:"source"`
		Importance float64   `json:"importance"`
		Understood *struct {
			MainContent string `json:"main_content"`
		} `json:"understood"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		printError("Failed to parse events: %v", err)
		return
	}
	if len(events) == 0 {
		fmt.Println("Working memory is empty.")
		return
	}
	for _, e := range events {
		content := ""
		if e.Understood != nil {
			content = e.Understood.MainContent
		}
		fmt.Printf("  %s \033[36m[%s]\033[0m (%.0f) %s\n", e.Timestamp.Format("15:04:05"), e.Source, e.Importance, content)
	}
}

func fetchPlugins(server string) {
	resp, err := client.Get(server + "/api/plugins")
	if err != nil {
		printError("Failed to fetch plugins: %v", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Slots      []string `json:"slots"`
		Registered []string `json:"registered"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		printError("Failed to parse plugins: %v", err)
		return
	}
	registered := make(map[string]bool, len(body.Registered))
	for _, s := range body.Registered {
		registered[s] = true
	}
	fmt.Println("Collaborators:")
	for _, s := range body.Slots {
		icon := "\033[31m✗\033[0m"
		if registered[s] {
			icon = "\033[32m✓\033[0m"
		}
		fmt.Printf("  %s %s\n", icon, s)
	}
}

func sendEvent(server, eventType, data, source string) {
	body, _ := json.Marshal(map[string]string{
		"type":   eventType,
		"data":   data,
		"source": source,
	})

	resp, err := client.Post(server+"/api/events", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}

	var ack struct {
		Status string `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&ack)
	if ack.Status != "aware" {
		fmt.Printf("\033[33m(core is %s, event dropped; /wake first)\033[0m\n", ack.Status)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
