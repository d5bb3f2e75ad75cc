package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sessiond/pkg/types"
)

// client is a thin wrapper over the sessiond HTTP API.
type client struct {
	baseURL string
	http    http.Client
}

func (c *client) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) postJSON(path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var e types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("%s (status %d)", e.Error, resp.StatusCode)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}

func (c *client) printModels(w io.Writer) error {
	var resp types.ModelsResponse
	if err := c.getJSON("/models", &resp); err != nil {
		return err
	}
	for _, m := range resp.Models {
		line := m.ID
		if m.Quant != "" {
			line += "\t" + m.Quant
		}
		if m.Family != "" {
			line += "\t" + m.Family
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func (c *client) printStatus(w io.Writer) error {
	var resp types.StatusResponse
	if err := c.getJSON("/status", &resp); err != nil {
		return err
	}
	fmt.Fprintf(w, "sessions: %d\nmodels: %d\ndefault model: %s\nuptime: %ds\n",
		resp.Sessions, resp.Models, resp.DefaultModel, resp.UptimeSeconds)
	return nil
}

func (c *client) printSessions(w io.Writer) error {
	var resp types.SessionsResponse
	if err := c.getJSON("/sessions", &resp); err != nil {
		return err
	}
	for _, s := range resp.Sessions {
		state := "loaded"
		if !s.Loaded {
			state = "unloaded"
		}
		fmt.Fprintf(w, "%d\t%s\t%d turns\t%s\n", s.SessionID, s.Model, s.Turns, state)
	}
	return nil
}

func (c *client) createSession(model, systemPrompt string, maxNewTokens int, reasoning bool) (int64, string, error) {
	req := types.CreateSessionRequest{
		Model:        model,
		SystemPrompt: systemPrompt,
		MaxNewTokens: maxNewTokens,
		Reasoning:    reasoning,
	}
	var resp types.CreateSessionResponse
	if err := c.postJSON("/sessions", req, &resp); err != nil {
		return 0, "", err
	}
	return resp.SessionID, resp.Model, nil
}

func (c *client) releaseSession(id int64) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/sessions/%d", c.baseURL, id), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return nil
}

// chat streams one reply, writing delta fragments as they arrive.
func (c *client) chat(w io.Writer, id int64, text string) error {
	raw, err := json.Marshal(types.ChatRequest{Text: text})
	if err != nil {
		return err
	}
	resp, err := c.http.Post(fmt.Sprintf("%s/sessions/%d/chat", c.baseURL, id), "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev types.ChatEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return fmt.Errorf("bad stream line %q: %w", line, err)
		}
		if ev.Delta != "" {
			fmt.Fprint(w, ev.Delta)
		}
		if ev.Done {
			fmt.Fprintln(w)
			if ev.Stats != nil {
				fmt.Fprintf(w, "[prompt %d tok, gen %d tok]\n", ev.Stats.PromptLen, ev.Stats.GenLen)
			}
		}
	}
	return sc.Err()
}

func (c *client) printHistory(w io.Writer, id int64) error {
	var resp types.ChatHistoryRequest
	if err := c.getJSON(fmt.Sprintf("/sessions/%d/history", id), &resp); err != nil {
		return err
	}
	for _, t := range resp.Turns {
		fmt.Fprintf(w, "[%s] %s\n", t.Role, t.Text)
	}
	return nil
}
