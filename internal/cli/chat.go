package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chatd/pkg/types"
)

// errStreamDone ends readSSE after the completion marker.
var errStreamDone = errors.New("stream done")

func newChatCmd() *cobra.Command {
	var (
		server    string
		session   string
		maxTokens int
	)
	cmd := &cobra.Command{
		Use:     "chat PROMPT",
		Short:   "Send one prompt to a running server and stream the reply",
		Example: "  chatd chat --server http://localhost:8080 \"Once upon a time\"",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				session = uuid.New().String()
				fmt.Fprintf(cmd.ErrOrStderr(), "session %s\n", session)
			}
			req := types.ChatRequest{SessionID: session, Prompt: args[0], MaxTokens: maxTokens}
			err := streamChat(cmd, server, req, cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Base URL of the chatd server")
	cmd.Flags().StringVar(&session, "session", "", "Session id (generated when empty)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Step budget (0 = server default)")
	return cmd
}

// streamChat opens GET /chat/stream and copies text chunks to out as they arrive.
func streamChat(cmd *cobra.Command, server string, req types.ChatRequest, out io.Writer) error {
	q := url.Values{}
	q.Set("session_id", req.SessionID)
	q.Set("prompt", req.Prompt)
	if req.MaxTokens > 0 {
		q.Set("max_tokens", strconv.Itoa(req.MaxTokens))
	}
	u := strings.TrimRight(server, "/") + "/chat/stream?" + q.Encode()
	hreq, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	hreq.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e types.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("server: %s (%d)", e.Error, resp.StatusCode)
		}
		return fmt.Errorf("server: %s", resp.Status)
	}

	var streamErr error
	err = readSSE(resp.Body, func(event, data string) error {
		switch event {
		case "error":
			var e types.ErrorResponse
			if json.Unmarshal([]byte(data), &e) == nil && e.Error != "" {
				data = e.Error
			}
			streamErr = errors.New(data)
			return nil
		default:
			if data == "[DONE]" {
				return errStreamDone
			}
			_, werr := io.WriteString(out, data)
			return werr
		}
	})
	if err != nil && !errors.Is(err, errStreamDone) {
		return err
	}
	if err == nil {
		return errors.New("stream ended without completion marker")
	}
	return streamErr
}

// readSSE calls fn for every event in r. Multi-line data is rejoined with
// "\n"; comment lines are skipped. An error from fn stops reading and is
// returned.
func readSSE(r io.Reader, fn func(event, data string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var (
		event string
		data  []string
		seen  bool
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if seen {
				if err := fn(event, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			event, data, seen = "", nil, false
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
			seen = true
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			seen = true
		}
	}
	return sc.Err()
}
