package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// daemonClient talks to cartsyncd's REST surface.
type daemonClient struct {
	baseURL string
	http    *http.Client
}

// apiError is a non-2xx response from the daemon.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func clientFor(cmd *cobra.Command) *daemonClient {
	base, _ := cmd.Flags().GetString("daemon")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return &daemonClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// do sends body as JSON and decodes the response into out. The raw response
// body is returned for --json output.
func (c *daemonClient) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var payload struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(respBody, &payload)
		return respBody, &apiError{
			Status:  resp.StatusCode,
			Code:    payload.Error.Code,
			Message: payload.Error.Message,
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return respBody, fmt.Errorf("parsing response: %w", err)
		}
	}
	return respBody, nil
}

// printRaw writes the response body indented.
func printRaw(cmd *cobra.Command, data []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

func jsonMode(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
