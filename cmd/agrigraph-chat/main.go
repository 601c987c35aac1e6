// Command agrigraph-chat is a terminal client for a running agrigraph
// server. It keeps one session for the whole conversation.
//
// Usage:
//
//	agrigraph-chat [-addr http://localhost:8080]
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/agrigraph/server"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "agrigraph server address")
	flag.Parse()

	fmt.Println(titleStyle.Render("agrigraph — farming advisor"))
	fmt.Println(faintStyle.Render("type a question, /image <url> to attach a photo, /quit to exit"))
	fmt.Println()

	client := &http.Client{Timeout: 5 * time.Minute}
	scanner := bufio.NewScanner(os.Stdin)
	sessionID := ""
	imageURL := ""

	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return
		case strings.HasPrefix(line, "/image "):
			imageURL = strings.TrimSpace(strings.TrimPrefix(line, "/image "))
			fmt.Println(faintStyle.Render("image attached to next question"))
			continue
		}

		resp, err := ask(client, *addr, server.ChatRequest{
			SessionID: sessionID,
			Message:   line,
			ImageURL:  imageURL,
		})
		imageURL = ""
		if err != nil {
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			continue
		}
		sessionID = resp.SessionID

		fmt.Println(answerStyle.Render(resp.Answer))
		if n := len(resp.Result.Documents); n > 0 {
			fmt.Println(faintStyle.Render(fmt.Sprintf("(%d knowledge-base documents, %d web results)",
				n, len(resp.Result.WebResults))))
		}
		fmt.Println()
	}
}

func ask(client *http.Client, addr string, req server.ChatRequest) (*server.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpResp, err := client.Post(addr+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(httpResp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("server status %d", httpResp.StatusCode)
	}

	var resp server.ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
