package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newStateCmd(baseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the running server's frame and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return adminCall(cmd.OutOrStdout(), http.MethodGet, *baseURL, "/admin/v1/state", 5*time.Second)
		},
	}
}

func newExportCmd(baseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Ask the running server to write a store export",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return adminCall(cmd.OutOrStdout(), http.MethodPost, *baseURL, "/admin/v1/export", 10*time.Second)
		},
	}
}

func adminCall(out io.Writer, method, baseURL, path string, timeout time.Duration) error {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	_, _ = fmt.Fprintln(out, strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
